package wire

import (
	"context"

	"github.com/sirupsen/logrus"

	"mysqlredisd/internal/classifier"
	"mysqlredisd/internal/executor"
	"mysqlredisd/internal/ratelimit"
	"mysqlredisd/internal/security"
)

// Pipeline runs the rate-limit, classify, execute sequence for a single
// SQL statement, independent of the socket it arrived on. Keeping it
// separate from Server makes the request pipeline testable without a
// real net.Conn.
type Pipeline struct {
	Limiter   *ratelimit.Limiter
	AllowScan bool
	Executor  *executor.Executor
	Checker   *security.Checker
	Logger    *logrus.Logger
}

// Run executes one SQL statement on behalf of clientAddr.
func (p *Pipeline) Run(ctx context.Context, sql string, clientAddr string) executor.ResultSet {
	if p.Limiter != nil && !p.Limiter.Allow(ctx, clientAddr) {
		return executor.ResultSet{Columns: []string{"result"}}
	}

	c := classifier.Classify(sql, p.AllowScan)

	if p.Checker != nil {
		if literal := literalFromClassification(c); literal != "" {
			p.Checker.CheckQuery(literal)
		}
	}

	return p.Executor.Execute(ctx, c, clientAddr)
}

func literalFromClassification(c classifier.Result) string {
	switch c.Kind {
	case classifier.PkLookup:
		return c.Value
	case classifier.TokenVerify:
		return c.Token
	default:
		return ""
	}
}
