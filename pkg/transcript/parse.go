package transcript

import "github.com/MrWong99/listenkit/pkg/recognizer"

// Fragments returns the top alternative of every result in ev that has not
// been delivered before, in order.
func Fragments(ev recognizer.ResultEvent) []Fragment {
	results := pending(ev)
	out := make([]Fragment, 0, len(results))
	for _, r := range results {
		out = append(out, Fragment{Text: r.Top(), Final: r.IsFinal})
	}
	return out
}

// ParseResults extracts the interim and final text carried by ev.
//
// Results before ev.ResultIndex were consumed by an earlier batch and are
// skipped. For every remaining result the top alternative is normalised and
// appended to the interim or final text depending on its finality. Both
// totals are normalised again at the end, which guards against duplicates
// introduced by concatenating several results of one batch.
func ParseResults(ev recognizer.ResultEvent) (interim, final string) {
	for _, f := range Fragments(ev) {
		text := RemoveDuplicateWords(f.Text)
		if text == "" {
			continue
		}
		if f.Final {
			final = Combine(final, text)
		} else {
			interim = Combine(interim, text)
		}
	}
	return RemoveDuplicateWords(interim), RemoveDuplicateWords(final)
}

// pending returns the results of ev that have not been delivered before.
// An out-of-range ResultIndex is clamped.
func pending(ev recognizer.ResultEvent) []recognizer.Result {
	idx := ev.ResultIndex
	if idx < 0 {
		idx = 0
	}
	if idx > len(ev.Results) {
		idx = len(ev.Results)
	}
	return ev.Results[idx:]
}
