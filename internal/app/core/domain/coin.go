package domain

// Coin 單一幣別的金額
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount"`
}

// NewCoin 建立 Coin
func NewCoin(amount uint64, denom string) Coin {
	return Coin{Denom: denom, Amount: amount}
}

// Coins 只含一種幣別的 funds
func Coins(amount uint64, denom string) []Coin {
	return []Coin{NewCoin(amount, denom)}
}

// AmountOf 加總 funds 中指定幣別的金額，其他幣別直接忽略
func AmountOf(funds []Coin, denom string) (uint64, error) {
	var total uint64
	for _, coin := range funds {
		if coin.Denom != denom {
			continue
		}
		sum, err := CheckedAdd(total, coin.Amount)
		if err != nil {
			return 0, err
		}
		total = sum
	}
	return total, nil
}
