package domain

// PoolState 全域唯一的池子狀態
type PoolState struct {
	// Admin 唯一可以分配收益的身分，初始化後不可變
	Admin string `json:"admin"`
	// PoolTotalAmount 本金總和加上歷次注入的收益
	PoolTotalAmount uint64 `json:"pool_total_amount"`
	// TotalYield 歷次 Distribute 注入的收益總和
	TotalYield uint64 `json:"total_yield"`
	// TotalGainPaid 歷次 Withdraw 付出的收益總和
	TotalGainPaid uint64 `json:"total_gain_paid"`
}

// ContractInfo 初始化時寫入的版本資訊
type ContractInfo struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}

// Account 帳戶的查詢視圖
type Account struct {
	ID        string `json:"id"`
	Principal uint64 `json:"principal"`
	Gain      uint64 `json:"gain"`
}
