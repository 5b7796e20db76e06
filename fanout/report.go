package fanout

import (
	"github.com/brendoncarroll/go-topicdisc/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Succeeded returns the outcomes without an error.
func Succeeded[T any](outs []Outcome[T]) []Outcome[T] {
	var ret []Outcome[T]
	for _, o := range outs {
		if o.OK() {
			ret = append(ret, o)
		}
	}
	return ret
}

// Failed returns the outcomes with an error.
func Failed[T any](outs []Outcome[T]) []Outcome[T] {
	var ret []Outcome[T]
	for _, o := range outs {
		if !o.OK() {
			ret = append(ret, o)
		}
	}
	return ret
}

// Values returns the values of the successful outcomes, in order.
func Values[T any](outs []Outcome[T]) []T {
	var ret []T
	for _, o := range outs {
		if o.OK() {
			ret = append(ret, o.Value)
		}
	}
	return ret
}

// Errors combines the errors of all failed outcomes, each annotated with
// its node.  It returns nil if every outcome succeeded.
func Errors[T any](outs []Outcome[T]) error {
	var err error
	for _, o := range outs {
		if o.Err != nil {
			err = multierr.Append(err, errors.Wrapf(o.Err, "node %v", o.Node.ID.Short()))
		}
	}
	return err
}

// Report logs one line per outcome and a summary, and records metrics under opName.
func Report[T any](log logrus.FieldLogger, opName string, outs []Outcome[T]) {
	log = log.WithFields(logrus.Fields{
		"op":    opName,
		"batch": uuid.NewString(),
	})
	for _, o := range outs {
		metrics.FanOutOutcomes.WithLabelValues(opName, metrics.Result(o.Err)).Inc()
		metrics.FanOutDuration.WithLabelValues(opName).Observe(o.Elapsed.Seconds())
		l := log.WithFields(logrus.Fields{
			"node":    o.Node.ID.String(),
			"elapsed": o.Elapsed,
		})
		if o.Err != nil {
			l.WithError(o.Err).Warn("node failed")
		} else {
			l.Info("node succeeded")
		}
	}
	summary := log.WithFields(logrus.Fields{
		"succeeded": len(Succeeded(outs)),
		"total":     len(outs),
	})
	if err := Errors(outs); err != nil {
		summary = summary.WithError(err)
	}
	summary.Info("fan-out complete")
}
