package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDeposit 沒有附帶池子代幣，或附帶金額為 0
	ErrInvalidDeposit = errors.New("invalid deposit")

	// ErrUnauthorized 呼叫者不是 admin
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidArgument 參數不符合前置條件 (實際回傳的是 *ArgumentError)
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrArithmeticOverflow 整數運算溢位
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrArithmeticUnderflow 整數運算下溢 (扣到負數)
	ErrArithmeticUnderflow = errors.New("arithmetic underflow")

	// ErrDivisionByZero 除以零
	ErrDivisionByZero = errors.New("division by zero")

	// ErrNotInitialized 池子尚未初始化
	ErrNotInitialized = errors.New("pool not initialized")

	// ErrAlreadyInitialized 池子已經初始化過
	ErrAlreadyInitialized = errors.New("pool already initialized")

	// ErrEmptyPool 沒有任何帳戶持有本金，無法分配收益
	ErrEmptyPool = errors.New("no principal in pool to distribute against")

	// ErrUnknownCommand 未知的指令類型
	ErrUnknownCommand = errors.New("unknown command type")

	// ErrCommandAlreadyProcessed 指令已處理
	ErrCommandAlreadyProcessed = errors.New("command already processed")

	// ErrSelectCommandFailed 查詢指令紀錄失敗
	ErrSelectCommandFailed = errors.New("select command failed")

	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = errors.New("wal write failed")

	// ErrInvariantViolated 帳本不變量被破壞
	ErrInvariantViolated = errors.New("ledger invariant violated")
)

// ArgumentError 指出是哪一個參數不合法
type ArgumentError struct {
	Name string
}

// NewArgumentError 建立 InvalidArgument(name)
func NewArgumentError(name string) error {
	return &ArgumentError{Name: name}
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Name)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// 錯誤種類，transport 會原封不動回給呼叫端
const (
	KindInvalidDeposit      = "InvalidDeposit"
	KindUnauthorized        = "Unauthorized"
	KindInvalidArgument     = "InvalidArgument"
	KindArithmeticOverflow  = "ArithmeticOverflow"
	KindArithmeticUnderflow = "ArithmeticUnderflow"
	KindDivisionByZero      = "DivisionByZero"
	KindNotInitialized      = "NotInitialized"
	KindAlreadyInitialized  = "AlreadyInitialized"
	KindEmptyPool           = "EmptyPool"
	KindUnknownCommand      = "UnknownCommand"
	KindAlreadyProcessed    = "AlreadyProcessed"
	KindInternal            = "Internal"
)

// ErrorKind 把錯誤轉成對外的種類字串
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidDeposit):
		return KindInvalidDeposit
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrArithmeticOverflow):
		return KindArithmeticOverflow
	case errors.Is(err, ErrArithmeticUnderflow):
		return KindArithmeticUnderflow
	case errors.Is(err, ErrDivisionByZero):
		return KindDivisionByZero
	case errors.Is(err, ErrNotInitialized):
		return KindNotInitialized
	case errors.Is(err, ErrAlreadyInitialized):
		return KindAlreadyInitialized
	case errors.Is(err, ErrEmptyPool):
		return KindEmptyPool
	case errors.Is(err, ErrUnknownCommand):
		return KindUnknownCommand
	case errors.Is(err, ErrCommandAlreadyProcessed):
		return KindAlreadyProcessed
	default:
		return KindInternal
	}
}

// ArgumentName 取出 InvalidArgument 的參數名稱，其他錯誤回傳空字串
func ArgumentName(err error) string {
	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		return argErr.Name
	}
	return ""
}
