package advertise

import (
	"github.com/brendoncarroll/go-topicdisc"
	"github.com/brendoncarroll/go-topicdisc/topic"
	"github.com/sirupsen/logrus"
)

// Remove takes t out of the engine's republish set, effective from the next
// republish interval.  The outcome is logged and returned.
func Remove(e topicdisc.Engine, t topic.Topic, log logrus.FieldLogger) (string, error) {
	if log == nil {
		log = topicdisc.Logger
	}
	log = log.WithField("topic", t)
	log.Info("removing topic")
	res, err := e.RemoveTopic(t)
	if err != nil {
		log.WithError(err).Error("failed to remove topic")
		return "", err
	}
	log.WithField("result", res).Info("removed topic")
	return res, nil
}
