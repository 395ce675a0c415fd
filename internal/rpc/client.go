package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"math/big"
	"math/rand"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	logpkg "github.com/mikedotexe/fastnear-compact-indexer/pkg/log"
)

// Config configures the NEAR JSON-RPC client.
type Config struct {
	URL         string
	BearerToken string
	// Concurrency bounds in-flight requests per Fetch call.
	Concurrency int
	// Timeout applies to each HTTP request.
	Timeout time.Duration
	// MaxAttempts bounds retries of one request on transient errors.
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultConfig returns conservative defaults for mainnet RPC.
func DefaultConfig() Config {
	return Config{
		URL:         "https://rpc.mainnet.near.org",
		Concurrency: 16,
		Timeout:     10 * time.Second,
		MaxAttempts: 5,
		BaseBackoff: 200 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
	}
}

var (
	// ErrTransient marks failures worth retrying (network, 5xx, RPC timeouts).
	ErrTransient = errors.New("transient rpc failure")
	// errAbsent marks lookups that legitimately have no value.
	errAbsent = errors.New("no value")
)

// Client performs lookups against NEAR JSON-RPC.
type Client struct {
	cfg    Config
	http   *http.Client
	logger logpkg.Logger
	nextID atomic.Uint64
}

// NewClient builds a Client; zero fields of cfg fall back to DefaultConfig.
func NewClient(cfg Config, logger logpkg.Logger) *Client {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.WithComponent("rpc"),
	}
}

// Fetch performs every task and returns one result per task, in input order.
// Either all results are returned or the call fails as a unit.
func (c *Client) Fetch(ctx context.Context, tasks []Task) ([]Result, error) {
	results := make([]Result, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i := range tasks {
		i := i
		results[i].Task = tasks[i]
		g.Go(func() error {
			v, err := c.fetchOne(gctx, tasks[i])
			if err != nil {
				return errors.Wrapf(err, "task %d %s %s/%s", i, tasks[i].Kind, tasks[i].TokenID, tasks[i].AccountID)
			}
			results[i].Value = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) fetchOne(ctx context.Context, t Task) (*FTBalance, error) {
	if t.Kind != TaskFTBalance {
		return nil, errors.Newf("unsupported task kind %s", t.Kind)
	}
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt)
			c.logger.Warn("retrying rpc request",
				logpkg.Int("attempt", attempt+1),
				logpkg.Duration("wait", wait),
				logpkg.Str("token_id", t.TokenID),
				logpkg.Err(lastErr))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		raw, err := c.callFunction(ctx, t.TokenID, "ft_balance_of", map[string]string{"account_id": t.AccountID}, t.BlockHeight)
		switch {
		case err == nil:
			bal, err := parseBalance(raw)
			if err != nil {
				return nil, err
			}
			return &FTBalance{Balance: bal}, nil
		case errors.Is(err, errAbsent):
			return nil, nil
		case errors.Is(err, ErrTransient):
			lastErr = err
		default:
			return nil, err
		}
	}
	return nil, errors.Wrapf(lastErr, "giving up after %d attempts", c.cfg.MaxAttempts)
}

// backoff returns an exponentially growing delay with jitter in [d/2, d].
func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.BaseBackoff << uint(attempt-1)
	if d <= 0 || d > c.cfg.MaxBackoff {
		d = c.cfg.MaxBackoff
	}
	half := int64(d / 2)
	return time.Duration(half + rand.Int63n(half+1))
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type callFunctionParams struct {
	RequestType string  `json:"request_type"`
	Finality    string  `json:"finality,omitempty"`
	BlockID     *uint64 `json:"block_id,omitempty"`
	AccountID   string  `json:"account_id"`
	MethodName  string  `json:"method_name"`
	ArgsBase64  string  `json:"args_base64"`
}

type rpcResponse struct {
	Result *struct {
		Raw   []int  `json:"result"`
		Error string `json:"error"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

type rpcError struct {
	Name    string `json:"name"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Cause   struct {
		Name string `json:"name"`
	} `json:"cause"`
}

// absentCauses are errors meaning "this pair has no balance", not failures.
var absentCauses = map[string]struct{}{
	"UNKNOWN_ACCOUNT":          {},
	"NO_CONTRACT_CODE":         {},
	"CONTRACT_EXECUTION_ERROR": {},
}

var transientCauses = map[string]struct{}{
	"TIMEOUT_ERROR":    {},
	"INTERNAL_ERROR":   {},
	"NO_SYNCED_BLOCKS": {},
}

func (c *Client) callFunction(ctx context.Context, contract, method string, args interface{}, height *uint64) ([]byte, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	params := callFunctionParams{
		RequestType: "call_function",
		AccountID:   contract,
		MethodName:  method,
		ArgsBase64:  base64.StdEncoding.EncodeToString(argsJSON),
	}
	if height != nil {
		params.BlockID = height
	} else {
		params.Finality = "final"
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      strconv.FormatUint(c.nextID.Add(1), 10),
		Method:  "query",
		Params:  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Mark(errors.Wrap(err, "rpc request"), ErrTransient)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "rpc read body"), ErrTransient)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, errors.Mark(errors.Newf("rpc http status %d", resp.StatusCode), ErrTransient)
	}

	var out rpcResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, errors.Wrapf(err, "rpc decode response (http %d)", resp.StatusCode)
	}
	if out.Error != nil {
		if _, ok := absentCauses[out.Error.Cause.Name]; ok {
			return nil, errAbsent
		}
		if _, ok := transientCauses[out.Error.Cause.Name]; ok {
			return nil, errors.Mark(errors.Newf("rpc %s: %s", out.Error.Cause.Name, out.Error.Message), ErrTransient)
		}
		return nil, errors.Newf("rpc error %s/%s: %s", out.Error.Name, out.Error.Cause.Name, out.Error.Message)
	}
	if out.Result == nil {
		return nil, errors.New("rpc response without result")
	}
	if out.Result.Error != "" {
		// older nodes report contract panics inside the result object
		return nil, errAbsent
	}
	raw := make([]byte, len(out.Result.Raw))
	for i, b := range out.Result.Raw {
		raw[i] = byte(b)
	}
	return raw, nil
}

// parseBalance decodes the JSON string returned by ft_balance_of.
func parseBalance(raw []byte) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrapf(err, "ft_balance_of returned %q", raw)
	}
	bal, ok := new(big.Int).SetString(s, 10)
	if !ok || bal.Sign() < 0 {
		return nil, errors.Newf("ft_balance_of returned non-decimal %q", s)
	}
	return bal, nil
}
