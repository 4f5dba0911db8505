package i18n

import (
	"reflect"
	"sync"
)

// Language type
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// Messages holds all translatable strings
type Messages struct {
	// System
	Starting           string
	ConfigLoaded       string
	ConfigLoadFailed   string
	ConfigInvalid      string
	UsingDBPath        string
	DBInitFailed       string
	DBMigrationsFailed string
	PersistenceOff     string
	NodeID             string
	ServerListening    string
	GRPCListening      string
	HealthChanged      string
	APIServerError     string
	GRPCServerError    string
	ShuttingDown       string
	SystemMetricsInit  string

	// Engine
	EngineStarted      string
	EngineStopped      string
	EngineStartFailed  string
	OrderPlaced        string
	OrderCancelled     string
	OrderExpired       string
	OrderTriggered     string
	EvaluationFault    string
	EmitFailed         string
	AuditFailed        string
	PersistFailed      string
	OrdersRestored     string
	OrdersRestoreError string
	SeedLoaded         string
	SeedFailed         string
	SeedOrderFailed    string

	// Execution
	ExecutorStarted  string
	ExecutionFilled  string
	ExecutionFailed  string
	ExecutorPanic    string
	AuditLogOpenFail string

	// Services
	BinanceFeedStarted string
	MockFeedStarted    string
	NATSBridgeEnabled  string
	NATSConnectFailed  string
}

var (
	currentLang Language = LangEN
	mu          sync.RWMutex
	messages    *Messages
)

// English messages
var messagesEN = Messages{
	// System
	Starting:           "Starting trigger engine...",
	ConfigLoaded:       "Config loaded (Port: %s, feed: %s)",
	ConfigLoadFailed:   "Failed to load config: %v",
	ConfigInvalid:      "Invalid config: %v",
	UsingDBPath:        "Using DB path: %s",
	DBInitFailed:       "Failed to init database: %v",
	DBMigrationsFailed: "Failed to apply migrations: %v",
	PersistenceOff:     "Persistence disabled; orders live in memory only",
	NodeID:             "Node id: %s",
	ServerListening:    "Server listening on :%s",
	GRPCListening:      "gRPC health listening on %s",
	HealthChanged:      "Health status changed to %v",
	APIServerError:     "API server error: %v",
	GRPCServerError:    "gRPC server error: %v",
	ShuttingDown:       "Shutting down gracefully...",
	SystemMetricsInit:  "System metrics initialized",

	// Engine
	EngineStarted:      "Evaluation loop subscribed to price feed",
	EngineStopped:      "Evaluation loop unsubscribed",
	EngineStartFailed:  "Failed to start evaluation loop: %v",
	OrderPlaced:        "Order %s placed: %s %s qty=%.4f (agent %s)",
	OrderCancelled:     "Order %s cancelled (agent %s)",
	OrderExpired:       "Order %s expired (agent %s)",
	OrderTriggered:     "Order %s triggered: %s %s %s @ %.4f (agent %s)",
	EvaluationFault:    "Evaluation fault on order %s: %v",
	EmitFailed:         "Trigger emission for order %s failed: %v",
	AuditFailed:        "Audit write failed (%s): %v",
	PersistFailed:      "Persisting order %s failed: %v",
	OrdersRestored:     "Restored %d active orders",
	OrdersRestoreError: "Failed to restore orders: %v",
	SeedLoaded:         "Seeded %d orders from %s",
	SeedFailed:         "Failed to load seed file: %v",
	SeedOrderFailed:    "Seed order %d rejected: %v",

	// Execution
	ExecutorStarted:  "Paper executor started with %d workers",
	ExecutionFilled:  "Order %s filled @ %.4f (latency: %v)",
	ExecutionFailed:  "Order %s execution failed: %v (latency: %v)",
	ExecutorPanic:    "PANIC in executor for order %s: %v",
	AuditLogOpenFail: "Failed to open audit log: %v",

	// Services
	BinanceFeedStarted: "Binance feed started",
	MockFeedStarted:    "Mock feed started (%d symbols)",
	NATSBridgeEnabled:  "NATS bridge enabled: %s",
	NATSConnectFailed:  "NATS connect failed, bridge disabled: %v",
}

// Chinese messages
var messagesZH = Messages{
	// System
	Starting:           "啟動觸發引擎...",
	ConfigLoaded:       "設定已載入（埠號：%s，行情：%s）",
	ConfigLoadFailed:   "讀取設定失敗：%v",
	ConfigInvalid:      "設定無效：%v",
	UsingDBPath:        "使用資料庫路徑：%s",
	DBInitFailed:       "初始化資料庫失敗：%v",
	DBMigrationsFailed: "套用資料庫遷移失敗：%v",
	PersistenceOff:     "持久化已停用，訂單僅保存在記憶體",
	NodeID:             "節點識別碼：%s",
	ServerListening:    "服務監聽於 :%s",
	GRPCListening:      "gRPC 健康檢查監聽於 %s",
	HealthChanged:      "健康狀態變更為 %v",
	APIServerError:     "API 伺服器錯誤：%v",
	GRPCServerError:    "gRPC 伺服器錯誤：%v",
	ShuttingDown:       "正在優雅關閉...",
	SystemMetricsInit:  "系統指標初始化完成",

	// Engine
	EngineStarted:      "評估迴圈已訂閱行情",
	EngineStopped:      "評估迴圈已取消訂閱",
	EngineStartFailed:  "啟動評估迴圈失敗：%v",
	OrderPlaced:        "訂單 %s 已建立：%s %s 數量=%.4f（代理 %s）",
	OrderCancelled:     "訂單 %s 已取消（代理 %s）",
	OrderExpired:       "訂單 %s 已過期（代理 %s）",
	OrderTriggered:     "訂單 %s 已觸發：%s %s %s @ %.4f（代理 %s）",
	EvaluationFault:    "評估訂單 %s 時發生錯誤：%v",
	EmitFailed:         "訂單 %s 觸發事件送出失敗：%v",
	AuditFailed:        "稽核紀錄寫入失敗（%s）：%v",
	PersistFailed:      "訂單 %s 寫入資料庫失敗：%v",
	OrdersRestored:     "已還原 %d 筆有效訂單",
	OrdersRestoreError: "還原訂單失敗：%v",
	SeedLoaded:         "已從 %[2]s 預載 %[1]d 筆訂單",
	SeedFailed:         "讀取預載檔失敗：%v",
	SeedOrderFailed:    "預載訂單 %d 被拒絕：%v",

	// Execution
	ExecutorStarted:  "模擬執行器已啟動，工作者 %d 個",
	ExecutionFilled:  "訂單 %s 已成交 @ %.4f（延遲：%v）",
	ExecutionFailed:  "訂單 %s 執行失敗：%v（延遲：%v）",
	ExecutorPanic:    "執行器處理訂單 %s 時發生 PANIC：%v",
	AuditLogOpenFail: "開啟稽核紀錄檔失敗：%v",

	// Services
	BinanceFeedStarted: "Binance 行情訂閱已啟動",
	MockFeedStarted:    "模擬行情訂閱已啟動（%d 個標的）",
	NATSBridgeEnabled:  "NATS 橋接已啟用：%s",
	NATSConnectFailed:  "NATS 連線失敗，停用橋接：%v",
}

func init() {
	messages = &messagesEN
}

// SetLanguage sets the current language
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()

	currentLang = lang
	switch lang {
	case LangZH:
		messages = &messagesZH
	default:
		currentLang = LangEN
		messages = &messagesEN
	}
}

// GetLanguage returns the current language
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return currentLang
}

// M returns the current messages
func M() *Messages {
	mu.RLock()
	defer mu.RUnlock()
	return messages
}

// Get returns specific message by key dynamically using reflection
func Get(key string) string {
	msg := M()
	v := reflect.ValueOf(msg).Elem()
	f := v.FieldByName(key)
	if f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return key
}
