// Package crmtwin is an in-memory stand-in for the CRM REST API. It serves
// the token, query, describe and custom action endpoints the live client
// uses, seeded from the mock fixtures, with hooks for injecting failures.
package crmtwin

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/matthieukhl/loyaltydesk/internal/mockdata"
	"github.com/matthieukhl/loyaltydesk/internal/models"
)

// Record is a CRM record as served on the wire.
type Record map[string]any

const sfTimeLayout = "2006-01-02T15:04:05.000-0700"

// SecondaryOrderRecordType is the record type id given to seeded orders.
const SecondaryOrderRecordType = "012000000000SEC"

// Store holds records per object name.
type Store struct {
	mu           sync.Mutex
	objects      map[string][]Record
	statusValues []models.PicklistValue
	seq          int
	now          func() time.Time
}

func NewStore() *Store {
	return &Store{objects: make(map[string][]Record), now: time.Now}
}

// Seed loads the fixtures into CRM-shaped records.
func (s *Store) Seed(f *mockdata.Fixtures) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := f.Account
	s.objects["Account"] = append(s.objects["Account"], Record{
		"Id":                     a.ID,
		"Name":                   a.Name,
		"AccountNumber":          a.AccountNumber,
		"Type":                   a.Type,
		"Phone":                  a.Phone,
		"Tax_ID__c":              a.TaxID,
		"Email__c":               a.Email,
		"Total_Reward_Points__c": a.TotalRewardPoints,
		"CreatedDate":            a.CreatedDate.Format(sfTimeLayout),
	})
	for _, d := range f.Dealers {
		s.objects["Account"] = append(s.objects["Account"], Record{
			"Id":             d.ID,
			"Name":           d.Name,
			"Type":           "Dealer",
			"BillingCity":    d.City,
			"BillingState":   d.State,
			"Dealer_Type__c": d.Type,
		})
	}

	for _, p := range f.Products {
		rec := Record{
			"Id":          p.ID,
			"Name":        p.Name,
			"ProductCode": p.ProductCode,
			"Description": p.Description,
			"Family":      p.Family,
			"IsActive":    p.IsActive,
			"Price__c":    nil,
		}
		if p.Price != nil {
			rec["Price__c"] = *p.Price
		}
		s.objects["Product2"] = append(s.objects["Product2"], rec)
	}
	for _, e := range f.PriceEntries {
		s.objects["PricebookEntry"] = append(s.objects["PricebookEntry"], Record{
			"Id":           e.ID,
			"Product2Id":   e.ProductID,
			"Pricebook2Id": e.PricebookID,
			"UnitPrice":    e.UnitPrice,
			"IsActive":     true,
		})
	}

	for _, o := range f.Orders {
		s.objects["Order"] = append(s.objects["Order"], Record{
			"Id":            o.ID,
			"OrderNumber":   o.OrderNumber,
			"Status":        o.Status,
			"EffectiveDate": o.EffectiveDate,
			"AccountId":     a.ID,
			"Account":       Record{"Name": o.AccountName},
			"RecordTypeId":  SecondaryOrderRecordType,
			"TotalAmount":   o.TotalAmount,
		})
		for _, item := range f.LineItems(o) {
			s.addOrderItemLocked(o.ID, item)
		}
	}

	for _, c := range f.ConversionRequests {
		rec := Record{
			"Id":                 c.ID,
			"Name":               c.Name,
			"Order__c":           c.OrderID,
			"Dealer__c":          c.DealerID,
			"Influencer__c":      nil,
			"Points_Awarded__c":  c.PointsAwarded,
			"Status__c":          c.Status,
			"Conversion_Date__c": c.ConversionDate,
			"CreatedDate":        c.Created.Format(sfTimeLayout),
			"LastModifiedDate":   c.Created.Format(sfTimeLayout),
		}
		if o, ok := f.OrderByID(c.OrderID); ok {
			rec["Order__r"] = Record{"OrderNumber": o.OrderNumber}
		}
		s.objects["Conversion_Request__c"] = append(s.objects["Conversion_Request__c"], rec)
	}

	s.statusValues = append(s.statusValues, f.StatusValues...)
}

func (s *Store) addOrderItemLocked(orderID string, item models.OrderLineItem) {
	s.seq++
	s.objects["OrderItem"] = append(s.objects["OrderItem"], Record{
		"Id":         fmt.Sprintf("oi-%04d", s.seq),
		"OrderId":    orderID,
		"Product2Id": item.ProductID,
		"Product2":   Record{"Name": item.ProductName, "ProductCode": item.ProductCode},
		"Quantity":   item.Quantity,
		"UnitPrice":  item.UnitPrice,
		"TotalPrice": item.TotalPrice,
	})
}

// Find returns the first record of object whose field equals value.
func (s *Store) Find(object, field string, value any) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.objects[object] {
		if rec[field] == value {
			return rec, true
		}
	}
	return nil, false
}

// Count returns the number of records of an object.
func (s *Store) Count(object string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects[object])
}

// Insert appends a record and returns it.
func (s *Store) Insert(object string, rec Record) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[object] = append(s.objects[object], rec)
	return rec
}

// StatusValues returns the conversion status picklist.
func (s *Store) StatusValues() []models.PicklistValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PicklistValue(nil), s.statusValues...)
}

var (
	fromRe    = regexp.MustCompile(`(?i)\bFROM\s+(\w+)`)
	whereRe   = regexp.MustCompile(`(?i)\bWHERE\s+(.*?)(?:\s+ORDER\s+BY\s|\s+LIMIT\s|$)`)
	condRe    = regexp.MustCompile(`([\w.]+)\s*=\s*('(?:[^'\\]|\\.)*'|true|false)`)
	orderByRe = regexp.MustCompile(`(?i)\bORDER\s+BY\s+([\w.]+)(?:\s+(ASC|DESC))?`)
	limitRe   = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
)

// parsedQuery is the small subset of the query dialect the twin understands:
// one object, equality conditions joined by AND, one ORDER BY key and LIMIT.
type parsedQuery struct {
	object  string
	conds   map[string]any
	orderBy string
	desc    bool
	limit   int
}

func parseQuery(q string) (parsedQuery, error) {
	var pq parsedQuery
	m := fromRe.FindStringSubmatch(q)
	if m == nil {
		return pq, fmt.Errorf("unexpected token: missing FROM")
	}
	pq.object = m[1]
	pq.conds = make(map[string]any)

	if w := whereRe.FindStringSubmatch(q); w != nil {
		for _, c := range condRe.FindAllStringSubmatch(w[1], -1) {
			switch v := c[2]; v {
			case "true", "false":
				pq.conds[c[1]] = v == "true"
			default:
				pq.conds[c[1]] = unquote(v)
			}
		}
	}
	if o := orderByRe.FindStringSubmatch(q); o != nil {
		pq.orderBy = o[1]
		pq.desc = strings.EqualFold(o[2], "DESC")
	}
	if l := limitRe.FindStringSubmatch(q); l != nil {
		pq.limit, _ = strconv.Atoi(l[1])
	}
	return pq, nil
}

func unquote(lit string) string {
	lit = strings.TrimSuffix(strings.TrimPrefix(lit, "'"), "'")
	return strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(lit)
}

// Select runs a parsed query against the store.
func (s *Store) Select(pq parsedQuery) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, rec := range s.objects[pq.object] {
		if matches(rec, pq.conds) {
			out = append(out, withAttributes(pq.object, rec))
		}
	}
	if pq.orderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := fmt.Sprint(out[i][pq.orderBy]), fmt.Sprint(out[j][pq.orderBy])
			if pq.desc {
				return a > b
			}
			return a < b
		})
	}
	if pq.limit > 0 && len(out) > pq.limit {
		out = out[:pq.limit]
	}
	return out
}

func matches(rec Record, conds map[string]any) bool {
	for field, want := range conds {
		got := rec[field]
		switch w := want.(type) {
		case bool:
			if b, ok := got.(bool); !ok || b != w {
				return false
			}
		default:
			if fmt.Sprint(got) != w {
				return false
			}
		}
	}
	return true
}

func withAttributes(object string, rec Record) Record {
	out := make(Record, len(rec)+1)
	for k, v := range rec {
		out[k] = v
	}
	out["attributes"] = Record{"type": object}
	return out
}

func (s *Store) nextSeq() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}
