package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// answerTopN bounds how many retrieved passages go into the answer prompt.
const answerTopN = 5

const noContextAnswer = "No information found in the indexed documents for this question."

// answer generates the cited markdown answer from the top retrieved
// passages. Without a question the answer stays empty; without context a
// fixed no-information message is returned instead of hallucinating.
func (p *Pipeline) answer(ctx context.Context, st *State) error {
	if strings.TrimSpace(st.Q) == "" {
		return nil
	}
	if len(st.Retrieved) == 0 {
		st.AnswerMD = noContextAnswer
		return nil
	}

	passages := st.Retrieved
	if len(passages) > answerTopN {
		passages = passages[:answerTopN]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Answer the question using ONLY the numbered context passages below. Write a short markdown answer and cite the passages you used as [1]..[%d].\n\n", len(passages))
	fmt.Fprintf(&b, "Question: %s\n\nContext:\n", st.Q)
	for i, r := range passages {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, r.Text)
	}

	out, err := p.complete.Complete(ctx, b.String())
	if err != nil {
		st.AnswerMD = noContextAnswer
		return fmt.Errorf("answer completion: %w", err)
	}
	st.AnswerMD = strings.TrimSpace(out)
	if st.AnswerMD == "" {
		st.AnswerMD = noContextAnswer
	}
	return nil
}
