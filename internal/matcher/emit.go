package matcher

import (
	"go.uber.org/zap"

	"github.com/sesamestream/sesamestream/internal/model"
	"github.com/sesamestream/sesamestream/pkg/rdf"
)

// emitSolution implements spec.md §4.5: resolve the subscription, run
// filters against the pre-projection binding set, project and fold in
// constants, run the sequence modifier, and finally invoke the handler.
func (m *Matcher) emitSolution(subscriptionID string, bindings *model.Bindings) {
	sub, ok := m.Subscriptions.Lookup(subscriptionID)
	if !ok || !sub.Active() {
		return
	}
	q := sub.Query
	bindingMap := bindings.ToMap()

	for _, f := range q.Filters {
		accepted, err := f.Evaluate(bindingMap)
		if err != nil {
			m.Logger.Error("filter evaluation error, rejecting candidate solution",
				zap.String("subscription", subscriptionID),
				zap.Error(err))
			return
		}
		if !accepted {
			return
		}
	}

	result := make(map[string]rdf.Term, len(q.OrderedProjectedNames)+len(q.Constants))
	for _, outputName := range q.OrderedProjectedNames {
		sourceName := q.ProjectedName(outputName)
		if v, ok := bindingMap[sourceName]; ok {
			result[outputName] = v
		}
	}
	for name, v := range q.Constants {
		result[name] = v
	}

	if q.SequenceModifier != nil && !q.SequenceModifier.TrySolution(result, sub) {
		return
	}

	if sub.Handler != nil {
		sub.Handler(result)
	}
}
