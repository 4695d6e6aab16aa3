// Package alert evaluates operational health rules against the metrics of
// each monitor batch, e.g. "failed_pct > 50 for 5m".
package alert

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/cryptosignal/internal/core"
)

// Rule defines an alert rule.
type Rule struct {
	Name     string        `mapstructure:"name" validate:"required"`
	Expr     string        `mapstructure:"expr" validate:"required"`
	For      time.Duration `mapstructure:"for" validate:"gte=0"`
	Severity string        `mapstructure:"severity" default:"warning" validate:"omitempty,oneof=info warning critical"`
	Message  string        `mapstructure:"message"`
}

// "metric op value"
var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+)$`)

type condition struct {
	metric    string
	op        string
	threshold float64
}

func parse(expr string) (condition, error) {
	m := exprPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if len(m) != 4 {
		return condition{}, core.Errorf(core.ErrConfigInvalid, "alert expression %q: want \"metric op value\"", expr)
	}
	threshold, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return condition{}, core.Errorf(core.ErrConfigInvalid, "alert expression %q: %v", expr, err)
	}
	return condition{metric: m[1], op: m[2], threshold: threshold}, nil
}

// Validate checks the expression syntax and that it names a known metric.
func (r *Rule) Validate() error {
	c, err := parse(r.Expr)
	if err != nil {
		return err
	}
	if !knownMetric(c.metric) {
		return core.Errorf(core.ErrConfigInvalid, "alert %q: unknown metric %q (known: %s)",
			r.Name, c.metric, strings.Join(MetricNames(), ", "))
	}
	return nil
}

// Evaluate evaluates the rule expression against metrics. Malformed
// expressions and missing metrics never fire.
func (r *Rule) Evaluate(metrics map[string]float64) bool {
	c, err := parse(r.Expr)
	if err != nil {
		return false
	}
	value, exists := metrics[c.metric]
	if !exists {
		return false
	}

	switch c.op {
	case ">":
		return value > c.threshold
	case "<":
		return value < c.threshold
	case ">=":
		return value >= c.threshold
	case "<=":
		return value <= c.threshold
	case "==":
		return value == c.threshold
	case "!=":
		return value != c.threshold
	default:
		return false
	}
}

// FormatMessage formats the alert message with the metric's current value.
func (r *Rule) FormatMessage(metrics map[string]float64) string {
	severity := r.Severity
	if severity == "" {
		severity = "warning"
	}
	msg := r.Message
	if msg == "" {
		msg = r.Expr
	}
	out := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(severity), r.Name, msg)
	if c, err := parse(r.Expr); err == nil {
		if v, ok := metrics[c.metric]; ok {
			out += fmt.Sprintf(" (%s=%g)", c.metric, v)
		}
	}
	return out
}

// MetricNames lists the metrics BatchMetrics produces.
func MetricNames() []string {
	names := make([]string, 0, len(metricNames))
	for n := range metricNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func knownMetric(name string) bool {
	_, ok := metricNames[name]
	return ok
}
