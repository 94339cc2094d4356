package cxml

import (
	"fmt"
	"strings"
	"time"
)

// Placeholder tokens recognized in setup templates. Substitution is literal
// and exhaustive; the names are disjoint so order does not matter.
const (
	PlaceholderPayloadID    = "{PAYLOAD_ID}"
	PlaceholderTimestamp    = "{TIMESTAMP}"
	PlaceholderSessionKey   = "{SESSION_KEY}"
	PlaceholderBuyerID      = "{BUYER_ID}"
	PlaceholderDomain       = "{DOMAIN}"
	PlaceholderCustomerName = "{CUSTOMER_NAME}"
)

// DefaultSetupTemplate is the compiled-in fallback used when neither a
// customer-scoped nor an environment-scoped template is stored on the gateway.
const DefaultSetupTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE cXML SYSTEM "http://xml.cxml.org/schemas/cXML/1.2.014/cXML.dtd">
<cXML payloadID="{PAYLOAD_ID}" timestamp="{TIMESTAMP}" xml:lang="en-US">
  <Header>
    <From>
      <Credential domain="{DOMAIN}">
        <Identity>{BUYER_ID}</Identity>
      </Credential>
    </From>
    <To>
      <Credential domain="NetworkId">
        <Identity>{CUSTOMER_NAME}</Identity>
      </Credential>
    </To>
    <Sender>
      <Credential domain="{DOMAIN}">
        <Identity>{BUYER_ID}</Identity>
        <SharedSecret>test</SharedSecret>
      </Credential>
      <UserAgent>PunchLab Test Console</UserAgent>
    </Sender>
  </Header>
  <Request deploymentMode="test">
    <PunchOutSetupRequest operation="create">
      <BuyerCookie>{SESSION_KEY}</BuyerCookie>
      <Extrinsic name="UserEmail">tester@example.com</Extrinsic>
      <Extrinsic name="UniqueName">{SESSION_KEY}</Extrinsic>
      <BrowserFormPost>
        <URL>http://localhost/punchout/return</URL>
      </BrowserFormPost>
      <SupplierSetup>
        <URL>http://localhost/punchout/supplier</URL>
      </SupplierSetup>
    </PunchOutSetupRequest>
  </Request>
</cXML>
`

// Substitutions holds the per-attempt values spliced into a template.
type Substitutions struct {
	PayloadID    string
	Timestamp    string
	SessionKey   string
	BuyerID      string
	Domain       string
	CustomerName string
}

// Render replaces every occurrence of each placeholder in tmpl. Placeholders
// absent from the template are simply not substituted; unknown tokens are
// left untouched.
func Render(tmpl string, sub Substitutions) string {
	r := strings.NewReplacer(
		PlaceholderPayloadID, sub.PayloadID,
		PlaceholderTimestamp, sub.Timestamp,
		PlaceholderSessionKey, sub.SessionKey,
		PlaceholderBuyerID, sub.BuyerID,
		PlaceholderDomain, sub.Domain,
		PlaceholderCustomerName, sub.CustomerName,
	)
	return r.Replace(tmpl)
}

// NewSessionKey builds the correlation token for one execution attempt.
// The millisecond timestamp keeps rapid repeat runs against the same
// customer/environment pair distinct.
func NewSessionKey(environment, customerID string, now time.Time) string {
	return fmt.Sprintf("SESSION_%s_%s_%d", strings.ToUpper(environment), customerID, now.UnixMilli())
}

// NewPayloadID builds a cXML payloadID in the conventional
// <epoch-millis>.<suffix>@<host> shape.
func NewPayloadID(sessionKey string, now time.Time) string {
	return fmt.Sprintf("%d.%s@punchlab", now.UnixMilli(), sessionKey)
}

// Timestamp formats a cXML document timestamp.
func Timestamp(now time.Time) string {
	return now.Format(time.RFC3339)
}
