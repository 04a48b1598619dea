package sekura

import (
	"context"
	"net"
	"sync"

	"github.com/jonboulle/clockwork"
)

// One coordinator per feature screen. Each owns a single AsyncOperation and
// translates one screen action into one remote call; screens render from
// State/Subscribe and never talk to the client directly.

// URLScanner drives the site-scan screen.
type URLScanner struct {
	client *Client
	op     *AsyncOperation[*URLScanResult]
}

func NewURLScanner(client *Client, opts ...OperationOption[*URLScanResult]) *URLScanner {
	return &URLScanner{client: client, op: NewAsyncOperation(opts...)}
}

// Scan submits the URL and blocks until the verdict settles or is
// superseded by a newer Scan.
func (s *URLScanner) Scan(ctx context.Context, rawURL string) OperationSnapshot[*URLScanResult] {
	return s.op.Run(ctx, func(ctx context.Context) (*URLScanResult, error) {
		return s.client.ScanURL(ctx, rawURL)
	})
}

func (s *URLScanner) State() OperationSnapshot[*URLScanResult] { return s.op.State() }

func (s *URLScanner) Subscribe(obs OperationObserver[*URLScanResult]) func() {
	return s.op.Subscribe(obs)
}

// Reset clears the previous verdict before a fresh scan.
func (s *URLScanner) Reset() { s.op.Reset() }

// QRScanner drives the QR-code screen; capture hardware stays outside, only
// the decoded payload comes in.
type QRScanner struct {
	client *Client
	op     *AsyncOperation[*QRScanResult]
}

func NewQRScanner(client *Client, opts ...OperationOption[*QRScanResult]) *QRScanner {
	return &QRScanner{client: client, op: NewAsyncOperation(opts...)}
}

func (s *QRScanner) Analyze(ctx context.Context, decoded string) OperationSnapshot[*QRScanResult] {
	return s.op.Run(ctx, func(ctx context.Context) (*QRScanResult, error) {
		return s.client.ScanQR(ctx, decoded)
	})
}

func (s *QRScanner) State() OperationSnapshot[*QRScanResult] { return s.op.State() }

func (s *QRScanner) Subscribe(obs OperationObserver[*QRScanResult]) func() {
	return s.op.Subscribe(obs)
}

func (s *QRScanner) Reset() { s.op.Reset() }

// WiFiScanner drives the Wi-Fi screen. The server returns the verdict; the
// scanner adds the locally derived network visibility before publishing.
type WiFiScanner struct {
	client *Client
	op     *AsyncOperation[*WiFiScanResult]
}

func NewWiFiScanner(client *Client, opts ...OperationOption[*WiFiScanResult]) *WiFiScanner {
	return &WiFiScanner{client: client, op: NewAsyncOperation(opts...)}
}

func (s *WiFiScanner) Scan(ctx context.Context, info WiFiNetworkInfo) OperationSnapshot[*WiFiScanResult] {
	return s.op.Run(ctx, func(ctx context.Context) (*WiFiScanResult, error) {
		result, err := s.client.ScanWiFi(ctx, info)
		if err != nil {
			return nil, err
		}
		result.Visibility = networkVisibility(info.IPAddress)
		return result, nil
	})
}

func (s *WiFiScanner) State() OperationSnapshot[*WiFiScanResult] { return s.op.State() }

func (s *WiFiScanner) Subscribe(obs OperationObserver[*WiFiScanResult]) func() {
	return s.op.Subscribe(obs)
}

func (s *WiFiScanner) Reset() { s.op.Reset() }

// networkVisibility labels the address as seen from the local side.
func networkVisibility(address string) string {
	ip := net.ParseIP(address)
	if ip == nil {
		return "Unknown"
	}
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
		return "Private"
	}
	return "Public"
}

// BreachChecker drives the breach-lookup screen.
type BreachChecker struct {
	client *Client
	op     *AsyncOperation[*BreachReport]
}

func NewBreachChecker(client *Client, opts ...OperationOption[*BreachReport]) *BreachChecker {
	return &BreachChecker{client: client, op: NewAsyncOperation(opts...)}
}

func (c *BreachChecker) Check(ctx context.Context, query string) OperationSnapshot[*BreachReport] {
	return c.op.Run(ctx, func(ctx context.Context) (*BreachReport, error) {
		return c.client.CheckBreaches(ctx, query)
	})
}

func (c *BreachChecker) State() OperationSnapshot[*BreachReport] { return c.op.State() }

func (c *BreachChecker) Subscribe(obs OperationObserver[*BreachReport]) func() {
	return c.op.Subscribe(obs)
}

func (c *BreachChecker) Reset() { c.op.Reset() }

// DeviceInfoProvider supplies the local device posture. The platform layer
// implements it; tests stub it.
type DeviceInfoProvider interface {
	DeviceInfo() DeviceInfo
}

// DeviceAnalyzer drives the device-score screen.
type DeviceAnalyzer struct {
	client   *Client
	provider DeviceInfoProvider
	clock    clockwork.Clock
	op       *AsyncOperation[*DeviceSecurityReport]
}

func NewDeviceAnalyzer(client *Client, provider DeviceInfoProvider, opts ...OperationOption[*DeviceSecurityReport]) *DeviceAnalyzer {
	return &DeviceAnalyzer{
		client:   client,
		provider: provider,
		clock:    clockwork.NewRealClock(),
		op:       NewAsyncOperation(opts...),
	}
}

// WithClock injects a custom clock (useful for tests).
func (a *DeviceAnalyzer) WithClock(clock clockwork.Clock) *DeviceAnalyzer {
	if clock != nil {
		a.clock = clock
	}
	return a
}

// Analyze collects the device posture, submits it for scoring, and stamps
// the report with the check time.
func (a *DeviceAnalyzer) Analyze(ctx context.Context) OperationSnapshot[*DeviceSecurityReport] {
	return a.op.Run(ctx, func(ctx context.Context) (*DeviceSecurityReport, error) {
		report, err := a.client.AnalyzeDevice(ctx, a.provider.DeviceInfo())
		if err != nil {
			return nil, err
		}
		report.LastChecked = a.clock.Now()
		return report, nil
	})
}

func (a *DeviceAnalyzer) State() OperationSnapshot[*DeviceSecurityReport] { return a.op.State() }

func (a *DeviceAnalyzer) Subscribe(obs OperationObserver[*DeviceSecurityReport]) func() {
	return a.op.Subscribe(obs)
}

func (a *DeviceAnalyzer) Reset() { a.op.Reset() }

// AppInspector drives the app-permission screen.
type AppInspector struct {
	client *Client
	op     *AsyncOperation[*AppAnalysisReport]
}

func NewAppInspector(client *Client, opts ...OperationOption[*AppAnalysisReport]) *AppInspector {
	return &AppInspector{client: client, op: NewAsyncOperation(opts...)}
}

func (i *AppInspector) Inspect(ctx context.Context, packageName string) OperationSnapshot[*AppAnalysisReport] {
	return i.op.Run(ctx, func(ctx context.Context) (*AppAnalysisReport, error) {
		return i.client.AnalyzeApp(ctx, packageName)
	})
}

func (i *AppInspector) State() OperationSnapshot[*AppAnalysisReport] { return i.op.State() }

func (i *AppInspector) Subscribe(obs OperationObserver[*AppAnalysisReport]) func() {
	return i.op.Subscribe(obs)
}

func (i *AppInspector) Reset() { i.op.Reset() }

// ChatRole identifies a chat history entry's author.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of the local chat transcript.
type ChatMessage struct {
	Role ChatRole
	Text string
}

// AIAssistant drives the AI screen: a system analysis seeds the session and
// is round-tripped with every message. The transcript lives locally; a
// failed send keeps the user's entry and records the error state without
// losing history.
type AIAssistant struct {
	client *Client

	mu       sync.Mutex
	analysis *SystemAnalysis
	history  []ChatMessage

	analyzeOp *AsyncOperation[*SystemAnalysis]
	chatOp    *AsyncOperation[*ChatReply]
}

func NewAIAssistant(client *Client) *AIAssistant {
	return &AIAssistant{
		client:    client,
		analyzeOp: NewAsyncOperation[*SystemAnalysis](),
		chatOp:    NewAsyncOperation[*ChatReply](),
	}
}

// AnalyzeSystem fetches the analysis that enables chatting.
func (a *AIAssistant) AnalyzeSystem(ctx context.Context) OperationSnapshot[*SystemAnalysis] {
	snapshot := a.analyzeOp.Run(ctx, func(ctx context.Context) (*SystemAnalysis, error) {
		return a.client.SystemStatus(ctx)
	})
	if snapshot.Status == OperationSuccess {
		a.mu.Lock()
		a.analysis = snapshot.Value
		a.mu.Unlock()
	}
	return snapshot
}

// Ready reports whether a system analysis is loaded.
func (a *AIAssistant) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.analysis != nil
}

// Send appends the user message to the transcript and asks for a reply. It
// returns the chat operation snapshot; on success the assistant's reply is
// already appended to the transcript.
func (a *AIAssistant) Send(ctx context.Context, message string) OperationSnapshot[*ChatReply] {
	a.mu.Lock()
	analysis := a.analysis
	a.mu.Unlock()
	if analysis == nil {
		a.chatOp.Reset()
		return a.chatOp.State()
	}

	a.mu.Lock()
	a.history = append(a.history, ChatMessage{Role: ChatRoleUser, Text: message})
	a.mu.Unlock()

	snapshot := a.chatOp.Run(ctx, func(ctx context.Context) (*ChatReply, error) {
		return a.client.Chat(ctx, *analysis, message)
	})
	if snapshot.Status == OperationSuccess && snapshot.Value != nil {
		a.mu.Lock()
		a.history = append(a.history, ChatMessage{Role: ChatRoleAssistant, Text: snapshot.Value.Reply})
		a.mu.Unlock()
	}
	return snapshot
}

// History returns a copy of the transcript.
func (a *AIAssistant) History() []ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ChatMessage, len(a.history))
	copy(out, a.history)
	return out
}

// AnalysisState exposes the system-analysis operation for rendering.
func (a *AIAssistant) AnalysisState() OperationSnapshot[*SystemAnalysis] {
	return a.analyzeOp.State()
}

// ChatState exposes the chat operation for rendering.
func (a *AIAssistant) ChatState() OperationSnapshot[*ChatReply] {
	return a.chatOp.State()
}
