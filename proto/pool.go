// Package proto 質押池 gRPC 服務的訊息與服務定義
//
// 訊息以 JSON 編碼 (見 codec.go)，uint64 金額一律以字串傳輸避免 JavaScript 客戶端失去精度。
package proto

// Coin 單一幣別金額
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount,string"`
}

// InstantiateRequest 初始化池子
type InstantiateRequest struct {
	CommandId string `json:"command_id,omitempty"`
	Sender    string `json:"sender"`
	Admin     string `json:"admin,omitempty"`
}

// DepositRequest 存入本金
type DepositRequest struct {
	CommandId string  `json:"command_id,omitempty"`
	Sender    string  `json:"sender"`
	Funds     []*Coin `json:"funds"`
}

// DistributeRequest admin 注入收益
type DistributeRequest struct {
	CommandId string  `json:"command_id,omitempty"`
	Sender    string  `json:"sender"`
	Funds     []*Coin `json:"funds"`
}

// WithdrawRequest 提領本金
type WithdrawRequest struct {
	CommandId string `json:"command_id,omitempty"`
	Sender    string `json:"sender"`
	Amount    uint64 `json:"amount,string"`
}

// Attribute 結果標記
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Transfer 對外轉帳指示
type Transfer struct {
	ToAddress string  `json:"to_address"`
	Amount    []*Coin `json:"amount"`
}

// CommandResponse 指令結果
//
// 業務錯誤以 Success=false 回傳 (Soft Failure)，ErrorKind 為錯誤種類，
// InvalidArgument 時 Argument 指出哪個參數。
type CommandResponse struct {
	Success    bool         `json:"success"`
	ErrorKind  string       `json:"error_kind,omitempty"`
	Argument   string       `json:"argument,omitempty"`
	Message    string       `json:"message,omitempty"`
	CommandId  string       `json:"command_id,omitempty"`
	Attributes []*Attribute `json:"attributes,omitempty"`
	Transfers  []*Transfer  `json:"transfers,omitempty"`
}

// AccountRequest 查詢單一帳戶
type AccountRequest struct {
	Account string `json:"account"`
}

// AmountResponse 金額查詢結果
type AmountResponse struct {
	Amount uint64 `json:"amount,string"`
}

// PoolStateResponse 池子狀態
type PoolStateResponse struct {
	Admin           string `json:"admin"`
	PoolTotalAmount uint64 `json:"pool_total_amount,string"`
	TotalYield      uint64 `json:"total_yield,string"`
	TotalGainPaid   uint64 `json:"total_gain_paid,string"`
	Contract        string `json:"contract"`
	Version         string `json:"version"`
}

// GetSender 與產生碼相同的 nil-safe getter
func (x *DepositRequest) GetSender() string {
	if x != nil {
		return x.Sender
	}
	return ""
}

// GetSender nil-safe getter
func (x *WithdrawRequest) GetSender() string {
	if x != nil {
		return x.Sender
	}
	return ""
}

// GetAccount nil-safe getter
func (x *AccountRequest) GetAccount() string {
	if x != nil {
		return x.Account
	}
	return ""
}

func (x *CommandResponse) GetSuccess() bool {
	if x != nil {
		return x.Success
	}
	return false
}

func (x *CommandResponse) GetErrorKind() string {
	if x != nil {
		return x.ErrorKind
	}
	return ""
}

func (x *AmountResponse) GetAmount() uint64 {
	if x != nil {
		return x.Amount
	}
	return 0
}
