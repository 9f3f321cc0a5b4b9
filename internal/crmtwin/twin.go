package crmtwin

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/matthieukhl/loyaltydesk/internal/models"
)

// Options configures the twin.
type Options struct {
	ClientID     string
	ClientSecret string
	// PublicKey verifies jwt-bearer assertions. Without it only the issuer
	// is checked.
	PublicKey *rsa.PublicKey
	// PageSize caps records per query response; the rest is served through
	// nextRecordsUrl.
	PageSize int
}

// Twin holds all handler state.
type Twin struct {
	store *Store
	opts  Options

	mu            sync.Mutex
	tokens        map[string]bool
	cursors       map[string][]Record
	failLineItems map[string]bool
	failNext      int
	tokenRequests int
	dataRequests  int
}

func New(store *Store, opts Options) *Twin {
	if opts.PageSize <= 0 {
		opts.PageSize = 2000
	}
	return &Twin{
		store:         store,
		opts:          opts,
		tokens:        make(map[string]bool),
		cursors:       make(map[string][]Record),
		failLineItems: make(map[string]bool),
	}
}

// Store returns the backing record store.
func (t *Twin) Store() *Store { return t.store }

// Router builds the HTTP handler.
func (t *Twin) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	t.Routes(r)
	return r
}

// Routes mounts the CRM endpoints.
func (t *Twin) Routes(r chi.Router) {
	r.Post("/services/oauth2/token", t.Token)

	r.Group(func(r chi.Router) {
		r.Use(t.requireBearer)
		r.Use(t.faults)

		r.Get("/services/data/{version}/query", t.Query)
		r.Get("/services/data/{version}/query/{cursor}", t.QueryMore)
		r.Get("/services/data/{version}/sobjects/{object}/describe", t.Describe)

		r.Post("/services/apexrest/ConversionRequest/", t.CreateConversion)
		r.Post("/services/apexrest/CreateOrder/", t.CreateOrder)
	})
}

// FailLineItemsFor makes every OrderItem query for orderID fail with a 500.
func (t *Twin) FailLineItemsFor(orderID string) {
	t.mu.Lock()
	t.failLineItems[orderID] = true
	t.mu.Unlock()
}

// FailNext makes the next n authenticated requests fail with a 503.
func (t *Twin) FailNext(n int) {
	t.mu.Lock()
	t.failNext = n
	t.mu.Unlock()
}

// RevokeTokens invalidates every issued token.
func (t *Twin) RevokeTokens() {
	t.mu.Lock()
	t.tokens = make(map[string]bool)
	t.mu.Unlock()
}

// TokenRequests returns how many times the token endpoint was called.
func (t *Twin) TokenRequests() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokenRequests
}

// DataRequests returns how many authenticated requests reached a handler.
func (t *Twin) DataRequests() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dataRequests
}

type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, []apiError{{Message: msg, ErrorCode: code}})
}

// Token handles POST /services/oauth2/token.
func (t *Twin) Token(w http.ResponseWriter, r *http.Request) {
	t.mu.Lock()
	t.tokenRequests++
	t.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "client_credentials":
		if r.PostForm.Get("client_id") != t.opts.ClientID || r.PostForm.Get("client_secret") != t.opts.ClientSecret {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_client", "error_description": "invalid client credentials"})
			return
		}
	case "urn:ietf:params:oauth:grant-type:jwt-bearer":
		if err := t.checkAssertion(r.PostForm.Get("assertion")); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": err.Error()})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	t.mu.Lock()
	token := fmt.Sprintf("00Dtwin!%06d", t.tokenRequests)
	t.tokens[token] = true
	t.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"instance_url": "http://" + r.Host,
		"token_type":   "Bearer",
	})
}

func (t *Twin) checkAssertion(assertion string) error {
	if assertion == "" {
		return fmt.Errorf("missing assertion")
	}
	var claims jwt.RegisteredClaims
	if t.opts.PublicKey != nil {
		_, err := jwt.ParseWithClaims(assertion, &claims, func(*jwt.Token) (any, error) {
			return t.opts.PublicKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil {
			return fmt.Errorf("assertion rejected: %w", err)
		}
	} else if _, _, err := jwt.NewParser().ParseUnverified(assertion, &claims); err != nil {
		return fmt.Errorf("malformed assertion: %w", err)
	}
	if claims.Issuer != t.opts.ClientID {
		return fmt.Errorf("unknown issuer %q", claims.Issuer)
	}
	if claims.Subject == "" {
		return fmt.Errorf("missing subject")
	}
	return nil
}

func (t *Twin) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		t.mu.Lock()
		valid := ok && t.tokens[token]
		t.mu.Unlock()
		if !valid {
			writeError(w, http.StatusUnauthorized, "INVALID_SESSION_ID", "Session expired or invalid")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *Twin) faults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.mu.Lock()
		t.dataRequests++
		fail := t.failNext > 0
		if fail {
			t.failNext--
		}
		t.mu.Unlock()
		if fail {
			writeError(w, http.StatusServiceUnavailable, "SERVER_UNAVAILABLE", "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type queryPage struct {
	TotalSize      int      `json:"totalSize"`
	Done           bool     `json:"done"`
	Records        []Record `json:"records"`
	NextRecordsURL string   `json:"nextRecordsUrl,omitempty"`
}

// Query handles GET /services/data/{version}/query?q=.
func (t *Twin) Query(w http.ResponseWriter, r *http.Request) {
	pq, err := parseQuery(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "MALFORMED_QUERY", err.Error())
		return
	}

	if pq.object == "OrderItem" {
		orderID, _ := pq.conds["OrderId"].(string)
		t.mu.Lock()
		fail := t.failLineItems[orderID]
		t.mu.Unlock()
		if fail {
			writeError(w, http.StatusInternalServerError, "UNKNOWN_EXCEPTION", "injected line item failure")
			return
		}
	}

	records := t.store.Select(pq)
	t.writePage(w, chi.URLParam(r, "version"), len(records), records)
}

// QueryMore handles GET /services/data/{version}/query/{cursor}.
func (t *Twin) QueryMore(w http.ResponseWriter, r *http.Request) {
	cursor := chi.URLParam(r, "cursor")
	t.mu.Lock()
	records, ok := t.cursors[cursor]
	delete(t.cursors, cursor)
	t.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "INVALID_QUERY_LOCATOR", "invalid query locator")
		return
	}
	t.writePage(w, chi.URLParam(r, "version"), -1, records)
}

func (t *Twin) writePage(w http.ResponseWriter, version string, total int, records []Record) {
	page := queryPage{TotalSize: total, Done: true, Records: records}
	if page.Records == nil {
		page.Records = []Record{}
	}
	if len(records) > t.opts.PageSize {
		cursor := fmt.Sprintf("01gtwin%06d", t.store.nextSeq())
		t.mu.Lock()
		t.cursors[cursor] = records[t.opts.PageSize:]
		t.mu.Unlock()
		page.Records = records[:t.opts.PageSize]
		page.Done = false
		page.NextRecordsURL = fmt.Sprintf("/services/data/%s/query/%s", version, cursor)
	}
	writeJSON(w, http.StatusOK, page)
}

type picklistEntry struct {
	Label        string `json:"label"`
	Value        string `json:"value"`
	Active       bool   `json:"active"`
	DefaultValue bool   `json:"defaultValue"`
}

// Describe handles GET /services/data/{version}/sobjects/{object}/describe.
func (t *Twin) Describe(w http.ResponseWriter, r *http.Request) {
	object := chi.URLParam(r, "object")
	if object != "Conversion_Request__c" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "The requested resource does not exist")
		return
	}
	values := t.store.StatusValues()
	entries := make([]picklistEntry, len(values))
	for i, v := range values {
		entries[i] = picklistEntry{Label: v.Label, Value: v.Value, Active: true, DefaultValue: v.IsDefault}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name": object,
		"fields": []map[string]any{
			{"name": "Status__c", "type": "picklist", "picklistValues": entries},
		},
	})
}

// CreateConversion handles POST /services/apexrest/ConversionRequest/.
func (t *Twin) CreateConversion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID  string `json:"orderId"`
		DealerID string `json:"dealerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON_PARSER_ERROR", "invalid JSON body")
		return
	}

	order, ok := t.store.Find("Order", "Id", req.OrderID)
	if !ok {
		writeJSON(w, http.StatusOK, models.CreationResult{Success: false, Message: fmt.Sprintf("Order %s does not exist.", req.OrderID)})
		return
	}
	dealer, ok := t.store.Find("Account", "Id", req.DealerID)
	if !ok || dealer["Type"] != "Dealer" {
		writeJSON(w, http.StatusOK, models.CreationResult{Success: false, Message: fmt.Sprintf("Dealer %s does not exist.", req.DealerID)})
		return
	}

	seq := t.store.nextSeq()
	now := t.store.now().UTC().Format(sfTimeLayout)
	id := fmt.Sprintf("a0Btwin%06d", seq)
	number := fmt.Sprintf("CR-%04d", 1000+seq%9000)
	t.store.Insert("Conversion_Request__c", Record{
		"Id":                 id,
		"Name":               number,
		"Order__c":           req.OrderID,
		"Order__r":           Record{"OrderNumber": order["OrderNumber"]},
		"Dealer__c":          req.DealerID,
		"Influencer__c":      nil,
		"Points_Awarded__c":  nil,
		"Status__c":          string(models.ConversionPending),
		"Conversion_Date__c": nil,
		"CreatedDate":        now,
		"LastModifiedDate":   now,
	})

	writeJSON(w, http.StatusOK, models.CreationResult{
		Success:       true,
		RecordID:      id,
		RequestNumber: number,
		StatusValue:   string(models.ConversionPending),
		Message:       fmt.Sprintf("Conversion request created for Order %v and Dealer %v", order["OrderNumber"], dealer["Name"]),
	})
}

// CreateOrder handles POST /services/apexrest/CreateOrder/.
func (t *Twin) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID     string                  `json:"accountId"`
		RecordTypeID  string                  `json:"recordTypeId"`
		EffectiveDate string                  `json:"effectiveDate"`
		LineItems     []models.OrderDraftLine `json:"lineItems"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON_PARSER_ERROR", "invalid JSON body")
		return
	}

	account, ok := t.store.Find("Account", "Id", req.AccountID)
	if !ok {
		writeJSON(w, http.StatusOK, models.CreationResult{Success: false, Message: fmt.Sprintf("Account %s does not exist.", req.AccountID)})
		return
	}
	if len(req.LineItems) == 0 {
		writeJSON(w, http.StatusOK, models.CreationResult{Success: false, Message: "An order needs at least one line item."})
		return
	}

	items := make([]models.OrderLineItem, 0, len(req.LineItems))
	var total float64
	for _, l := range req.LineItems {
		product, ok := t.store.Find("Product2", "Id", l.ProductID)
		if !ok || product["IsActive"] != true {
			writeJSON(w, http.StatusOK, models.CreationResult{Success: false, Message: fmt.Sprintf("Product %s is not available.", l.ProductID)})
			return
		}
		unit, _ := product["Price__c"].(float64)
		if entry, ok := t.store.Find("PricebookEntry", "Product2Id", l.ProductID); ok {
			unit, _ = entry["UnitPrice"].(float64)
		}
		name, _ := product["Name"].(string)
		code, _ := product["ProductCode"].(string)
		item := models.NewLineItem(l.ProductID, name, code, l.Quantity, unit)
		total += item.TotalPrice
		items = append(items, item)
	}

	seq := t.store.nextSeq()
	id := fmt.Sprintf("801twin%06d", seq)
	number := fmt.Sprintf("%08d", seq)
	t.store.Insert("Order", Record{
		"Id":            id,
		"OrderNumber":   number,
		"Status":        "Draft",
		"EffectiveDate": req.EffectiveDate,
		"AccountId":     req.AccountID,
		"Account":       Record{"Name": account["Name"]},
		"RecordTypeId":  req.RecordTypeID,
		"TotalAmount":   models.RoundCents(total),
	})
	t.store.mu.Lock()
	for _, item := range items {
		t.store.addOrderItemLocked(id, item)
	}
	t.store.mu.Unlock()

	writeJSON(w, http.StatusOK, models.CreationResult{
		Success:     true,
		RecordID:    id,
		OrderNumber: number,
		StatusValue: "Draft",
		Message:     fmt.Sprintf("Order %s created with %d line items", number, len(items)),
	})
}
