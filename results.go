package sekura

import (
	"encoding/json"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Typed schemas for every remote endpoint. The client validates each
// response against its schema before it reaches any feature state, so
// malformed payloads surface as a request-level error instead of leaking
// untyped data into the UI.

// AuthPayload is the success body of the login and register endpoints.
type AuthPayload struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

// Validate will run validation rules
func (p AuthPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Token, validation.Required),
		validation.Field(&p.User, validation.Required),
	)
}

// Validate will run validation rules
func (u UserProfile) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Username, validation.Required),
		validation.Field(&u.Email, is.Email),
	)
}

// Verdict buckets shared by the scan endpoints.
const (
	VerdictSafe       = "Safe"
	VerdictSuspicious = "Suspicious"
	VerdictUnsafe     = "Unsafe"
)

// URLScanResult is the verdict for a submitted site URL.
type URLScanResult struct {
	Status     string   `json:"status"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons,omitempty"`
}

// Validate will run validation rules
func (r URLScanResult) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required,
			validation.In(VerdictSafe, VerdictSuspicious, VerdictUnsafe)),
		validation.Field(&r.Confidence, validation.Min(0.0), validation.Max(100.0)),
	)
}

// QRScanResult is the verdict for a decoded QR payload.
type QRScanResult struct {
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
	Target     string  `json:"target,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// Validate will run validation rules
func (r QRScanResult) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required,
			validation.In(VerdictSafe, VerdictSuspicious, VerdictUnsafe)),
		validation.Field(&r.Confidence, validation.Min(0.0), validation.Max(100.0)),
	)
}

// WiFiNetworkInfo is the locally collected network posture sent for scanning.
type WiFiNetworkInfo struct {
	SSID        string `json:"ssid"`
	IPAddress   string `json:"ipAddress"`
	IsConnected bool   `json:"isConnected"`
	Type        string `json:"type"`
}

// WiFiScanResult is the verdict for the current network. Visibility is not
// part of the server response; the scanner derives it locally from the
// address before the result is published.
type WiFiScanResult struct {
	Status     string   `json:"status"`
	Encryption string   `json:"encryption,omitempty"`
	Risks      []string `json:"risks,omitempty"`
	Visibility string   `json:"-"`
}

// Validate will run validation rules
func (r WiFiScanResult) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required,
			validation.In(VerdictSafe, VerdictSuspicious, VerdictUnsafe)),
	)
}

// Breach severity buckets.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Breach is one known exposure of the queried identifier.
type Breach struct {
	Name        string   `json:"name"`
	Domain      string   `json:"domain,omitempty"`
	Date        string   `json:"date,omitempty"`
	Severity    string   `json:"severity"`
	ExposedData []string `json:"exposedData,omitempty"`
}

// Validate will run validation rules
func (b Breach) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Name, validation.Required),
		validation.Field(&b.Severity,
			validation.In(SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow)),
	)
}

// BreachReport is the breach-lookup response. An empty Breaches slice is a
// valid "no exposures" answer.
type BreachReport struct {
	Breaches []Breach `json:"breaches"`
}

// Validate will run validation rules
func (r BreachReport) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Breaches, validation.NotNil),
	)
}

// DeviceInfo is the device posture payload for the scoring endpoint.
type DeviceInfo struct {
	Platform      string `json:"platform"`
	OSVersion     string `json:"osVersion"`
	Model         string `json:"model"`
	IsEmulator    bool   `json:"isEmulator"`
	DeveloperMode bool   `json:"developerMode"`
	UserAgent     string `json:"userAgent"`
}

// SecurityCheck is one line item of the device score.
type SecurityCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DeviceSecurityReport is the scored device posture. LastChecked is stamped
// client-side when the report lands.
type DeviceSecurityReport struct {
	Score       int             `json:"score"`
	Checks      []SecurityCheck `json:"checks"`
	LastChecked time.Time       `json:"lastChecked,omitempty"`
}

// Validate will run validation rules
func (r DeviceSecurityReport) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Score, validation.Min(0), validation.Max(100)),
	)
}

// AppAnalysisReport is the permission/risk report for one installed package.
type AppAnalysisReport struct {
	PackageName string   `json:"packageName"`
	RiskLevel   string   `json:"riskLevel"`
	Permissions []string `json:"permissions,omitempty"`
	Notes       []string `json:"notes,omitempty"`
}

// Validate will run validation rules
func (r AppAnalysisReport) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PackageName, validation.Required),
		validation.Field(&r.RiskLevel, validation.Required),
	)
}

// SystemAnalysis is the AI system overview. The body is kept verbatim
// because the chat endpoint round-trips it unmodified; only minimal shape
// checks apply at the boundary.
type SystemAnalysis struct {
	Raw json.RawMessage
}

// UnmarshalJSON keeps the exact server bytes.
func (a *SystemAnalysis) UnmarshalJSON(data []byte) error {
	a.Raw = append(a.Raw[:0], data...)
	return nil
}

// MarshalJSON re-emits the exact server bytes.
func (a SystemAnalysis) MarshalJSON() ([]byte, error) {
	if len(a.Raw) == 0 {
		return []byte("null"), nil
	}
	return a.Raw, nil
}

// Validate will run validation rules
func (a SystemAnalysis) Validate() error {
	return validation.Validate([]byte(a.Raw), validation.Required)
}

// ChatReply is the assistant's answer to one chat message.
type ChatReply struct {
	Reply string `json:"reply"`
}

// Validate will run validation rules
func (r ChatReply) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reply, validation.Required),
	)
}
