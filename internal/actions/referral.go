package actions

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"

	"github.com/matthieukhl/loyaltydesk/internal/models"
)

const (
	ReferralPrefix  = "MYK-"
	referralLen     = 6
	referralCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Referral is what the referral page shows and shares.
type Referral struct {
	Code    string `json:"code"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

// ReferralCode draws six base-36 characters from r. Codes are not
// guaranteed unique.
func ReferralCode(r *rand.Rand) string {
	var b strings.Builder
	b.WriteString(ReferralPrefix)
	for range referralLen {
		b.WriteByte(referralCharset[r.IntN(len(referralCharset))])
	}
	return b.String()
}

// ReferralURL is the signup link carrying the code.
func ReferralURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/signup?ref=" + url.QueryEscape(code)
}

func ShareMessage(code, link string) string {
	return fmt.Sprintf("Join MyKLaticrete and earn rewards! Use my referral code: %s or visit %s", code, link)
}

// NewReferral builds code, link and message in one go.
func NewReferral(r *rand.Rand, baseURL string) Referral {
	code := ReferralCode(r)
	link := ReferralURL(baseURL, code)
	return Referral{Code: code, URL: link, Message: ShareMessage(code, link)}
}

// LookupScan finds a scannable product by code, ignoring case and
// surrounding space.
func LookupScan(products []models.ScannableProduct, code string) (models.ScannableProduct, bool) {
	code = strings.TrimSpace(code)
	for _, p := range products {
		if strings.EqualFold(p.Code, code) {
			return p, true
		}
	}
	return models.ScannableProduct{}, false
}
