// Package http 質押池的 REST 介面 (gorilla/mux)
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-stake-ledger/internal/app/metrics"
)

// CallerHeader 呼叫者身分，由前面的 gateway 驗證後帶入
const CallerHeader = "X-Caller-ID"

const maxBodyBytes = 1 << 16

type coinDTO struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount,string"`
}

type fundsRequest struct {
	CommandID string    `json:"command_id,omitempty"`
	Funds     []coinDTO `json:"funds"`
}

type withdrawRequest struct {
	CommandID string `json:"command_id,omitempty"`
	Amount    uint64 `json:"amount,string"`
}

type transferDTO struct {
	ToAddress string    `json:"to_address"`
	Amount    []coinDTO `json:"amount"`
}

type commandResponse struct {
	CommandID  string             `json:"command_id"`
	Attributes []domain.Attribute `json:"attributes"`
	Transfers  []transferDTO      `json:"transfers,omitempty"`
}

type commandDTO struct {
	Sequence  uint64    `json:"sequence,string"`
	CommandID string    `json:"command_id"`
	Type      string    `json:"type"`
	Sender    string    `json:"sender"`
	Admin     string    `json:"admin,omitempty"`
	Amount    uint64    `json:"amount,string,omitempty"`
	Funds     []coinDTO `json:"funds,omitempty"`
	CreatedAt int64     `json:"created_at"`
}

type amountResponse struct {
	Amount uint64 `json:"amount,string"`
}

type accountDTO struct {
	ID        string `json:"id"`
	Principal uint64 `json:"principal,string"`
	Gain      uint64 `json:"gain,string"`
}

type poolResponse struct {
	Admin           string `json:"admin"`
	Denom           string `json:"denom"`
	PoolTotalAmount uint64 `json:"pool_total_amount,string"`
	TotalYield      uint64 `json:"total_yield,string"`
	TotalGainPaid   uint64 `json:"total_gain_paid,string"`
	Contract        string `json:"contract"`
	Version         string `json:"version"`
}

type errorBody struct {
	Error    string `json:"error"`
	Argument string `json:"argument,omitempty"`
	Message  string `json:"message"`
}

// Handler REST 介面
type Handler struct {
	core *usecase.CoreUseCase
	log  *logrus.Entry
}

// NewHandler 建立 Handler
func NewHandler(core *usecase.CoreUseCase, log *logrus.Entry) *Handler {
	return &Handler{core: core, log: log.WithField("component", "http")}
}

// NewRouter 組出所有路由；limiter 可為 nil
func NewRouter(h *Handler, limiter *RateLimiter) *mux.Router {
	r := mux.NewRouter()
	r.Use(metrics.Middleware)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(limiter.Handler)
	v1.HandleFunc("/deposit", h.deposit).Methods(http.MethodPost)
	v1.HandleFunc("/distribute", h.distribute).Methods(http.MethodPost)
	v1.HandleFunc("/withdraw", h.withdraw).Methods(http.MethodPost)
	v1.HandleFunc("/accounts", h.listAccounts).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{account}/principal", h.principal).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{account}/gain", h.gain).Methods(http.MethodGet)
	v1.HandleFunc("/pool", h.pool).Methods(http.MethodGet)
	v1.HandleFunc("/pool/total", h.poolTotal).Methods(http.MethodGet)
	v1.HandleFunc("/commands", h.commands).Methods(http.MethodGet)
	v1.HandleFunc("/transfers/recent", h.recentTransfers).Methods(http.MethodGet)
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.core.GetPoolState(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	h.postFunds(w, r, domain.CommandTypeDeposit)
}

func (h *Handler) distribute(w http.ResponseWriter, r *http.Request) {
	h.postFunds(w, r, domain.CommandTypeDistribute)
}

func (h *Handler) postFunds(w http.ResponseWriter, r *http.Request, t domain.CommandType) {
	var req fundsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	funds := make([]domain.Coin, 0, len(req.Funds))
	for _, c := range req.Funds {
		funds = append(funds, domain.NewCoin(c.Amount, c.Denom))
	}
	h.post(w, r, req.CommandID, &domain.Command{
		Type:   t,
		Sender: r.Header.Get(CallerHeader),
		Funds:  funds,
	})
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.post(w, r, req.CommandID, &domain.Command{
		Type:   domain.CommandTypeWithdraw,
		Sender: r.Header.Get(CallerHeader),
		Amount: req.Amount,
	})
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request, commandID string, cmd *domain.Command) {
	if commandID != "" {
		id, err := uuid.Parse(commandID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{
				Error:    domain.KindInvalidArgument,
				Argument: "command_id",
				Message:  err.Error(),
			})
			return
		}
		cmd.CommandID = id
	}

	resp, err := h.core.PostCommand(r.Context(), cmd)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := commandResponse{
		CommandID:  cmd.CommandID.String(),
		Attributes: resp.Attributes,
	}
	for _, t := range resp.Transfers {
		out.Transfers = append(out.Transfers, toTransferDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func toCoinDTOs(coins []domain.Coin) []coinDTO {
	var out []coinDTO
	for _, c := range coins {
		out = append(out, coinDTO{Denom: c.Denom, Amount: c.Amount})
	}
	return out
}

func toTransferDTO(t domain.Transfer) transferDTO {
	return transferDTO{ToAddress: t.ToAddress, Amount: toCoinDTOs(t.Amount)}
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) {
	amount, err := h.core.GetPrincipal(r.Context(), mux.Vars(r)["account"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: amount})
}

func (h *Handler) gain(w http.ResponseWriter, r *http.Request) {
	amount, err := h.core.GetGain(r.Context(), mux.Vars(r)["account"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: amount})
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.core.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]accountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountDTO{ID: a.ID, Principal: a.Principal, Gain: a.Gain})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) pool(w http.ResponseWriter, r *http.Request) {
	state, err := h.core.GetPoolState(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	info, err := h.core.GetContractInfo(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{
		Admin:           state.Admin,
		Denom:           h.core.Denom(),
		PoolTotalAmount: state.PoolTotalAmount,
		TotalYield:      state.TotalYield,
		TotalGainPaid:   state.TotalGainPaid,
		Contract:        info.Contract,
		Version:         info.Version,
	})
}

func (h *Handler) poolTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.core.GetPoolTotal(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: total})
}

// commands GET /v1/commands?after=&limit=，只有 SQL 帳本支援
func (h *Handler) commands(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var after uint64
	if v := q.Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			h.writeError(w, domain.NewArgumentError("after"))
			return
		}
		after = n
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, domain.NewArgumentError("limit"))
			return
		}
		limit = n
	}

	cmds, err := h.core.Commands(r.Context(), after, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]commandDTO, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, commandDTO{
			Sequence:  c.Sequence,
			CommandID: c.CommandID.String(),
			Type:      c.Type.String(),
			Sender:    c.Sender,
			Admin:     c.Admin,
			Amount:    c.Amount,
			Funds:     toCoinDTOs(c.Funds),
			CreatedAt: c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) recentTransfers(w http.ResponseWriter, _ *http.Request) {
	transfers, err := h.core.RecentTransfers()
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]transferDTO, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, toTransferDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// statusFor 錯誤種類對應的 HTTP 狀態碼
func statusFor(kind string) int {
	switch kind {
	case domain.KindInvalidDeposit, domain.KindInvalidArgument, domain.KindUnknownCommand:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindAlreadyProcessed, domain.KindAlreadyInitialized:
		return http.StatusConflict
	case domain.KindArithmeticOverflow, domain.KindArithmeticUnderflow, domain.KindDivisionByZero, domain.KindEmptyPool:
		return http.StatusUnprocessableEntity
	case domain.KindNotInitialized:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, usecase.ErrUnsupported) {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "Unsupported", Message: err.Error()})
		return
	}
	kind := domain.ErrorKind(err)
	code := statusFor(kind)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
		msg = "internal error"
	}
	writeJSON(w, code, errorBody{
		Error:    kind,
		Argument: domain.ArgumentName(err),
		Message:  msg,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		code := http.StatusBadRequest
		if errors.As(err, &maxErr) {
			code = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, code, errorBody{Error: "BadRequest", Message: err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
