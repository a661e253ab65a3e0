// Package verify plays a check config's request sequence and classifies the result
package verify

import (
	"context"
	"net/http"
	"strings"

	"cyberchecker/internal/adapters/target"
	perr "cyberchecker/internal/platform/errors"
	"cyberchecker/internal/services/checker/domain"
	cfgdomain "cyberchecker/internal/services/configs/domain"
)

// Exchanger performs one HTTP exchange; satisfied by target.Client
type Exchanger interface {
	Do(ctx context.Context, req target.Request) (target.Exchange, error)
}

// Verifier runs one verification attempt per Verify call
// it is stateless across candidates and safe for sequential reuse
type Verifier struct {
	cfg    cfgdomain.CheckConfig
	client Exchanger
}

// New builds a Verifier for one check config
func New(cfg cfgdomain.CheckConfig, client Exchanger) *Verifier {
	return &Verifier{cfg: cfg, client: client}
}

var supportedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodDelete: {},
}

// Verify plays the request sequence for c and classifies the final response
//
// classification order: success conditions, failure conditions, rate
// limiting, then Free. Transport failures surface as TransientError;
// config impossibilities as FatalError
func (v *Verifier) Verify(ctx context.Context, c domain.Candidate) domain.Verdict {
	if len(v.cfg.Requests) == 0 {
		return domain.Verdict{
			Outcome: domain.OutcomeFatalError,
			Err:     perr.InvalidArgf("check config has no requests"),
		}
	}

	captured := map[string]string{}
	var last target.Exchange

	for i, rs := range v.cfg.Requests {
		method := strings.ToUpper(rs.Method)
		if method == "" {
			method = http.MethodGet
		}
		if _, ok := supportedMethods[method]; !ok {
			return domain.Verdict{
				Outcome: domain.OutcomeFatalError,
				Err:     perr.InvalidArgf("unsupported HTTP method %q", rs.Method),
			}
		}

		req := target.Request{
			Method: method,
			URL:    substitute(rs.URL, c.Username, c.Password, captured),
			Header: substituteMap(rs.Headers, c.Username, c.Password, captured),
			Form:   substituteMap(rs.Data, c.Username, c.Password, captured),
		}
		if rs.JSON != nil {
			req.JSON, _ = substituteAny(rs.JSON, c.Username, c.Password, captured).(map[string]any)
		}

		ex, err := v.client.Do(ctx, req)
		if err != nil {
			if perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
				return domain.Verdict{Outcome: domain.OutcomeFatalError, Err: err}
			}
			return domain.Verdict{Outcome: domain.OutcomeTransientError, Err: err}
		}
		last = ex

		if i == len(v.cfg.Requests)-1 {
			for _, cp := range v.cfg.Capture {
				if val, ok := extract(ex.Body, cp.Start, cp.End); ok && val != "" {
					captured[cp.Name] = val
				}
			}
		}
	}

	verdict := domain.Verdict{
		Captured:   captured,
		Status:     last.Status,
		RetryAfter: last.RetryAfter,
	}

	doc := decodeJSON(last.Body)
	switch {
	case evaluate(v.cfg.SuccessConditions, last.Status, last.Body, doc):
		verdict.Outcome = domain.OutcomeValid
	case evaluate(v.cfg.FailureConditions, last.Status, last.Body, doc):
		verdict.Outcome = domain.OutcomeInvalid
	case rateLimited(last):
		verdict.Outcome = domain.OutcomeRateLimited
	default:
		verdict.Outcome = domain.OutcomeFree
	}
	return verdict
}

// rateLimited flags 429 always, and 403/503 when the server asked us to back off
func rateLimited(ex target.Exchange) bool {
	if ex.Status == http.StatusTooManyRequests {
		return true
	}
	if ex.RetryAfter > 0 {
		return ex.Status == http.StatusForbidden || ex.Status == http.StatusServiceUnavailable
	}
	return false
}
