package domain

// Attribute 指令結果的 key/value 標記
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Transfer 對外轉帳指示，由外部系統負責執行
type Transfer struct {
	ToAddress string `json:"to_address"`
	Amount    []Coin `json:"amount"`
}

// Response 指令執行成功的結果
type Response struct {
	Attributes []Attribute `json:"attributes"`
	Transfers  []Transfer  `json:"transfers"`
}

// NewResponse 建立空的 Response
func NewResponse() *Response {
	return &Response{}
}

// AddAttribute 附加一個標記，回傳自己方便串接
func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// AddTransfer 附加一筆對外轉帳
func (r *Response) AddTransfer(transfer Transfer) *Response {
	r.Transfers = append(r.Transfers, transfer)
	return r
}

// Attribute 依 key 取得標記值
func (r *Response) Attribute(key string) (string, bool) {
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}
