package cxml

import "regexp"

var buyerCookieRe = regexp.MustCompile(`<BuyerCookie>\s*([^<>\s]+)\s*</BuyerCookie>`)

// ExtractBuyerCookie scans a raw gateway response for the first echoed
// BuyerCookie element. The response does not need to be well-formed XML;
// anything without a readable cookie yields ok=false, which is terminal for
// the attempt since nothing downstream can be correlated.
func ExtractBuyerCookie(raw string) (string, bool) {
	m := buyerCookieRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}
