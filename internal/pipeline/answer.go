package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/retrieval-judge/internal/answering"
	"github.com/jonathan/retrieval-judge/internal/llm"
	"github.com/jonathan/retrieval-judge/internal/types"
	"github.com/jonathan/retrieval-judge/internal/verification"
)

// AnswerGeneration answers question from chunks and verifies the answer.
// With useAmplification and a substantial context the question is first
// decomposed and the sub-questions answered concurrently. Only a failed
// synthesis or an unusable provider configuration is returned as an error.
func (p *Pipeline) AnswerGeneration(ctx context.Context, question string, chunks []types.Chunk, useAmplification, useAlternateVerification bool) (*types.AnswerResult, error) {
	var result *types.AnswerResult
	err := p.withSession(ctx, func(client llm.Client) error {
		docContext := answering.BuildContext(chunks)

		records := []types.SubquestionRecord{}
		if useAmplification && answering.IsSubstantial(docContext, p.opts.SubstantialContextChars) {
			subquestions := answering.NewPlanner(client, p.opts.MaxSubquestions, p.opts.CallTimeout).
				Decompose(ctx, question, docContext)
			p.emitProgress("decompose", fmt.Sprintf("decomposed into %d sub-questions", len(subquestions)), subquestions)
			if len(subquestions) > 0 {
				records = answering.NewAnswerer(client, p.opts.MaxConcurrency, p.opts.CallTimeout).
					AnswerAll(ctx, subquestions, docContext)
			}
		}

		answer, err := answering.NewSynthesizer(client, p.opts.CallTimeout).Synthesize(ctx, question, chunks, records)
		if err != nil {
			return err
		}
		p.emitProgress("synthesize", "answer synthesized", nil)

		verifier := verification.NewVerifier(client, verification.Options{
			Alternate:   p.alternateFactory(),
			CallTimeout: p.opts.CallTimeout,
		})
		if useAlternateVerification && !verifier.HasAlternate() {
			log.Printf("[WARN] alternate verification requested but no alternate provider is configured, verifying with %s", client.Provider())
			p.emitProgress("verify", "no alternate provider configured, using primary", nil)
		}
		verdict, err := verifier.Verify(ctx, question, answer, docContext, useAlternateVerification)
		if err != nil {
			return err
		}
		p.emitProgress("verify", fmt.Sprintf("verification score %.2f via %s", verdict.Score, verdict.Provider), verdict)

		result = &types.AnswerResult{
			Answer:       answer,
			Subquestions: records,
			Verification: verdict,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) alternateFactory() verification.AlternateFactory {
	if p.opts.Alternate == nil {
		return nil
	}
	return verification.AlternateFactory(p.opts.Alternate)
}
