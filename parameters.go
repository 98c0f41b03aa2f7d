package fedora

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// openIDResponse is the JSON envelope the OpenID endpoint answers a
// successful authentication request with.
type openIDResponse struct {
	Success  bool              `json:"success"`
	Response *OpenIDParameters `json:"response"`
}

// OpenIDParameters holds the openid.* key value pairs signed by the
// provider after a successful authentication.
//
// The authentication flow itself only consumes openid.return_to; the
// remaining parameters are kept for callers that want to inspect the
// claimed identity or the simple registration attributes. Parameters the
// provider sends as JSON numbers or booleans are stored in their string
// form, everything else is kept verbatim.
type OpenIDParameters struct {
	values url.Values
}

func (p *OpenIDParameters) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	values := make(url.Values, len(raw))
	for key, value := range raw {
		text, err := stringifyParameter(value)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", key, err)
		}
		values.Set(key, text)
	}
	p.values = values
	return nil
}

func (p *OpenIDParameters) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(p.values))
	for key := range p.values {
		flat[key] = p.values.Get(key)
	}
	return json.Marshal(flat)
}

func stringifyParameter(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// Get returns the value of an arbitrary response parameter, or the empty
// string if the provider did not send it. Useful for the extension
// namespaces (openid.ns.*, openid.cla.*, openid.lp.*) that have no
// dedicated accessor.
func (p *OpenIDParameters) Get(key string) string {
	return p.values.Get(key)
}

// Values returns a copy of all response parameters, in a form that can be
// re-encoded as a request body.
func (p *OpenIDParameters) Values() url.Values {
	clone := make(url.Values, len(p.values))
	for key, values := range p.values {
		clone[key] = append([]string(nil), values...)
	}
	return clone
}

// AssocHandle returns the openid.assoc_handle parameter.
func (p *OpenIDParameters) AssocHandle() string {
	return p.values.Get("openid.assoc_handle")
}

// ClaimedID returns the openid.claimed_id parameter.
func (p *OpenIDParameters) ClaimedID() string {
	return p.values.Get("openid.claimed_id")
}

// Identity returns the openid.identity parameter, the URL identifying the
// authenticated user.
func (p *OpenIDParameters) Identity() string {
	return p.values.Get("openid.identity")
}

// Mode returns the openid.mode parameter.
func (p *OpenIDParameters) Mode() string {
	return p.values.Get("openid.mode")
}

// Namespace returns the openid.ns parameter.
func (p *OpenIDParameters) Namespace() string {
	return p.values.Get("openid.ns")
}

// OpEndpoint returns the openid.op_endpoint parameter.
func (p *OpenIDParameters) OpEndpoint() string {
	return p.values.Get("openid.op_endpoint")
}

// ResponseNonce returns the openid.response_nonce parameter.
func (p *OpenIDParameters) ResponseNonce() string {
	return p.values.Get("openid.response_nonce")
}

// ReturnTo returns the openid.return_to parameter, the URL the completed
// authentication is posted to.
func (p *OpenIDParameters) ReturnTo() string {
	return p.values.Get("openid.return_to")
}

// Signature returns the openid.sig parameter.
func (p *OpenIDParameters) Signature() string {
	return p.values.Get("openid.sig")
}

// Signed returns the openid.signed parameter, the list of fields covered
// by the signature.
func (p *OpenIDParameters) Signed() string {
	return p.values.Get("openid.signed")
}

// Email returns the openid.sreg.email simple registration attribute.
func (p *OpenIDParameters) Email() string {
	return p.values.Get("openid.sreg.email")
}

// Nickname returns the openid.sreg.nickname simple registration attribute.
func (p *OpenIDParameters) Nickname() string {
	return p.values.Get("openid.sreg.nickname")
}
