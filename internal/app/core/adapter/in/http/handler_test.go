package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/bank"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/adapter/out/sqlkv"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/engine"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-stake-ledger/pkg/logger"
	"github.com/JoeShih716/go-stake-ledger/pkg/sqldb"
)

func newTestRouter(t *testing.T, limiter *RateLimiter, instantiate bool) *mux.Router {
	t.Helper()
	ledger, err := memory.NewMutexLedger(engine.New(engine.DefaultDenom), nil)
	require.NoError(t, err)
	core := usecase.NewCoreUseCase(ledger, nil, engine.DefaultDenom, logger.Discard())
	if instantiate {
		require.NoError(t, core.EnsureInstantiated(context.Background(), "creator", ""))
	}
	return NewRouter(NewHandler(core, logger.Discard()), limiter)
}

func do(t *testing.T, r http.Handler, method, path, caller, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if caller != "" {
		req.Header.Set(CallerHeader, caller)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandler_DepositDistributeWithdraw(t *testing.T) {
	r := newTestRouter(t, nil, true)

	rec := do(t, r, http.MethodPost, "/v1/deposit", "alice",
		`{"funds":[{"denom":"ubay","amount":"1000000"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/v1/distribute", "creator",
		`{"funds":[{"denom":"ubay","amount":"500000"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/v1/accounts/alice/gain", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"amount":"500000"}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/v1/pool/total", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"amount":"1500000"}`, rec.Body.String())

	id := uuid.New().String()
	rec = do(t, r, http.MethodPost, "/v1/withdraw", "alice",
		`{"command_id":"`+id+`","amount":"1000000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp commandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.CommandID)
	require.Len(t, resp.Transfers, 1)
	assert.Equal(t, "alice", resp.Transfers[0].ToAddress)
	assert.Equal(t, []coinDTO{{Denom: engine.DefaultDenom, Amount: 1_500_000}}, resp.Transfers[0].Amount)

	// 同一個 command_id 再送一次
	rec = do(t, r, http.MethodPost, "/v1/withdraw", "alice",
		`{"command_id":"`+id+`","amount":"1000000"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.KindAlreadyProcessed, decodeError(t, rec).Error)

	rec = do(t, r, http.MethodGet, "/v1/pool", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pool poolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pool))
	assert.Equal(t, "creator", pool.Admin)
	assert.Equal(t, uint64(0), pool.PoolTotalAmount)
	assert.Equal(t, uint64(500_000), pool.TotalYield)
	assert.Equal(t, uint64(500_000), pool.TotalGainPaid)
	assert.Equal(t, engine.ContractName, pool.Contract)
}

func TestHandler_ErrorMapping(t *testing.T) {
	r := newTestRouter(t, nil, true)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/v1/deposit", "alice",
		`{"funds":[{"denom":"ubay","amount":"100"}]}`).Code)

	tests := []struct {
		name     string
		path     string
		caller   string
		body     string
		code     int
		kind     string
		argument string
	}{
		{"wrong denom", "/v1/deposit", "alice", `{"funds":[{"denom":"uatom","amount":"100"}]}`, http.StatusBadRequest, domain.KindInvalidDeposit, ""},
		{"not admin", "/v1/distribute", "alice", `{"funds":[{"denom":"ubay","amount":"100"}]}`, http.StatusForbidden, domain.KindUnauthorized, ""},
		{"over withdraw", "/v1/withdraw", "alice", `{"amount":"101"}`, http.StatusBadRequest, domain.KindInvalidArgument, "amount"},
		{"missing caller", "/v1/deposit", "", `{"funds":[{"denom":"ubay","amount":"100"}]}`, http.StatusBadRequest, domain.KindInvalidArgument, "sender"},
		{"bad command id", "/v1/withdraw", "alice", `{"command_id":"nope","amount":"1"}`, http.StatusBadRequest, domain.KindInvalidArgument, "command_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, tt.path, tt.caller, tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			body := decodeError(t, rec)
			assert.Equal(t, tt.kind, body.Error)
			assert.Equal(t, tt.argument, body.Argument)
		})
	}

	rec := do(t, r, http.MethodPost, "/v1/deposit", "alice", `{"funds":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_NotInitialized(t *testing.T) {
	r := newTestRouter(t, nil, false)

	rec := do(t, r, http.MethodGet, "/v1/pool/total", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, domain.KindNotInitialized, decodeError(t, rec).Error)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/healthz", "", "").Code)
}

func TestHandler_ListAccounts(t *testing.T) {
	r := newTestRouter(t, nil, true)
	for _, who := range []string{"bob", "alice"} {
		require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/v1/deposit", who,
			`{"funds":[{"denom":"ubay","amount":"10"}]}`).Code)
	}

	rec := do(t, r, http.MethodGet, "/v1/accounts", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"id":"alice","principal":"10","gain":"0"},
		{"id":"bob","principal":"10","gain":"0"}
	]`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/v1/accounts/nobody/principal", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"amount":"0"}`, rec.Body.String())
}

func TestHandler_RateLimit(t *testing.T) {
	r := newTestRouter(t, NewRateLimiter(1, 1, logger.Discard()), true)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/v1/pool/total", "alice", "").Code)
	rec := do(t, r, http.MethodGet, "/v1/pool/total", "alice", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	// 其他呼叫者不受影響
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/v1/pool/total", "bob", "").Code)
	// /metrics 不在限流範圍
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/metrics", "alice", "").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/metrics", "alice", "").Code)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(10, 10, logger.Discard())
	for i := 0; i <= maxLimiters; i++ {
		rl.getLimiter(uuid.NewString())
	}
	rl.Cleanup()
	assert.Empty(t, rl.limiters)
}

func TestHandler_CommandsAndRecentTransfers(t *testing.T) {
	ctx := context.Background()
	db, err := sqldb.Open(ctx, sqldb.Config{Driver: sqldb.DriverSQLite, DSN: filepath.Join(t.TempDir(), "pool.db")})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, sqlkv.Migrate(ctx, db))

	core := usecase.NewCoreUseCase(
		sqlkv.NewLedger(db, engine.New(engine.DefaultDenom), logger.Discard()),
		bank.NewLogSender(logger.Discard(), 10),
		engine.DefaultDenom, logger.Discard())
	require.NoError(t, core.EnsureInstantiated(ctx, "creator", ""))
	r := NewRouter(NewHandler(core, logger.Discard()), nil)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/v1/deposit", "alice",
		`{"funds":[{"denom":"ubay","amount":"1000"}]}`).Code)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/v1/withdraw", "alice",
		`{"amount":"400"}`).Code)

	rec := do(t, r, http.MethodGet, "/v1/commands", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var all []commandDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 3)
	assert.Equal(t, []string{"instantiate", "deposit", "withdraw"}, []string{all[0].Type, all[1].Type, all[2].Type})

	rec = do(t, r, http.MethodGet, "/v1/commands?after=1&limit=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page []commandDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page, 1)
	assert.Equal(t, uint64(2), page[0].Sequence)
	assert.Equal(t, "alice", page[0].Sender)
	assert.Equal(t, []coinDTO{{Denom: engine.DefaultDenom, Amount: 1000}}, page[0].Funds)

	rec = do(t, r, http.MethodGet, "/v1/commands?after=x", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "after", decodeError(t, rec).Argument)

	rec = do(t, r, http.MethodGet, "/v1/transfers/recent", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"to_address":"alice","amount":[{"denom":"ubay","amount":"400"}]}]`, rec.Body.String())
}

func TestHandler_UnsupportedQueries(t *testing.T) {
	// 記憶體帳本沒有指令紀錄，也沒有接 Sender
	r := newTestRouter(t, nil, true)
	for _, path := range []string{"/v1/commands", "/v1/transfers/recent"} {
		rec := do(t, r, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusNotImplemented, rec.Code, path)
		assert.Equal(t, "Unsupported", decodeError(t, rec).Error)
	}
}
