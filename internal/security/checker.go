// Package security provides a secondary, logging-only scanner layered
// behind the classifier's whitelist. It never makes the accept/reject
// decision itself, since classifier.Classify is the sole trust boundary,
// but it flags literals that look like injection attempts even once
// they've already been accepted as, say, a PK lookup value, which is
// useful signal an operator can alert on.
package security

import (
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Checker inspects accepted query text and literal values for patterns
// commonly associated with SQL injection, purely for observability.
type Checker struct {
	patterns       []*regexp.Regexp
	blockedCount   int64
	inspectedCount int64
	logger         *logrus.Logger
	mu             sync.RWMutex
}

// NewChecker creates a Checker pre-loaded with a set of common SQL
// injection signatures.
func NewChecker(logger *logrus.Logger) *Checker {
	checker := &Checker{
		logger: logger,
	}

	checker.patterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\b(union|select|insert|update|delete|drop|create|alter|exec|execute)\b.*\b(from|into|where|table|database)\b)`),
		regexp.MustCompile(`(?i)('|\")(\s)*(or|and)(\s)*('|\")?(\s)*=(\s)*('|\")?`),
		regexp.MustCompile(`(?i)(;|\||&)(\s)*(drop|delete|update|insert|create|alter|exec|execute)`),
		regexp.MustCompile(`(?i)(/\*|\*/|--|\#|xp_cmdshell|sp_executesql)`),
		regexp.MustCompile(`(?i)(\bor\b|\band\b)(\s)+('|\")?[\d\w]+('|\")?(\s)*=(\s)*('|\")?[\d\w]+`),
		regexp.MustCompile(`(?i)(union.*select|select.*from.*where)`),
		regexp.MustCompile(`(?i)(benchmark|sleep|waitfor|delay)\s*\(`),
	}

	return checker
}

// CheckQuery inspects query text (or an already-extracted literal) and
// reports whether it matches a known injection signature, for logging
// alongside the classifier's own decision. It never changes that
// decision.
func (c *Checker) CheckQuery(query string) (bool, string) {
	c.mu.Lock()
	c.inspectedCount++
	c.mu.Unlock()

	normalized := strings.TrimSpace(strings.ToLower(query))

	for _, pattern := range c.patterns {
		if pattern.MatchString(normalized) {
			c.mu.Lock()
			c.blockedCount++
			c.mu.Unlock()

			reason := "suspicious pattern match"
			if c.logger != nil {
				c.logger.WithFields(logrus.Fields{
					"query":   query,
					"pattern": pattern.String(),
				}).Warn("defense_in_depth_flagged")
			}

			return true, reason
		}
	}

	if c.hasExcessiveSQLKeywords(normalized) {
		c.mu.Lock()
		c.blockedCount++
		c.mu.Unlock()

		reason := "excessive SQL keywords"
		if c.logger != nil {
			c.logger.WithField("query", query).Warn("defense_in_depth_flagged")
		}
		return true, reason
	}

	if c.hasCommentInjection(normalized) {
		c.mu.Lock()
		c.blockedCount++
		c.mu.Unlock()

		reason := "comment injection sequence"
		if c.logger != nil {
			c.logger.WithField("query", query).Warn("defense_in_depth_flagged")
		}
		return true, reason
	}

	return false, ""
}

func (c *Checker) hasExcessiveSQLKeywords(query string) bool {
	keywords := []string{
		"select", "union", "insert", "update", "delete",
		"drop", "create", "alter", "exec", "execute",
		"declare", "cast", "convert", "concat",
	}

	count := 0
	for _, keyword := range keywords {
		if strings.Contains(query, keyword) {
			count++
		}
	}

	return count > 3
}

func (c *Checker) hasCommentInjection(query string) bool {
	commentPatterns := []string{"--", "/*", "*/", "#", ";--"}

	for _, pattern := range commentPatterns {
		if strings.Contains(query, pattern) {
			return true
		}
	}

	return false
}

// GetStats returns counters for the admin status plane.
func (c *Checker) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"inspected_count": c.inspectedCount,
		"blocked_count":   c.blockedCount,
		"patterns_loaded": len(c.patterns),
	}
}

// Reset zeroes the counters.
func (c *Checker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blockedCount = 0
	c.inspectedCount = 0
}

// AddPattern adds an operator-supplied signature.
func (c *Checker) AddPattern(pattern string) error {
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.patterns = append(c.patterns, compiled)
	return nil
}

// RemovePattern removes a pattern by index.
func (c *Checker) RemovePattern(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.patterns) {
		return nil
	}

	c.patterns = append(c.patterns[:index], c.patterns[index+1:]...)
	return nil
}
