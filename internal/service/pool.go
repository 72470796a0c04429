package service

import (
	"math/rand"

	"github.com/sodiqdevpython/quizcore-backend/internal/model"
)

// drawQuestions picks a bounded subset from the pool. Count 0 means "all
// available". Random order draws a uniform sample without replacement and
// shuffles it; sequential takes the first count questions in the pool's
// stable creation order.
func drawQuestions(pool []model.Question, order model.OrderMode, count int) []model.Question {
	n := len(pool)
	if count > 0 && count < n {
		n = count
	}

	if order == model.OrderRandom {
		perm := rand.Perm(len(pool))
		drawn := make([]model.Question, n)
		for i := 0; i < n; i++ {
			drawn[i] = pool[perm[i]]
		}
		return drawn
	}

	drawn := make([]model.Question, n)
	copy(drawn, pool[:n])
	return drawn
}

// shuffledOptions returns a fresh shuffled copy of a question's options.
// Called on every presentation, never cached, so the option order carries no
// information across reads.
func shuffledOptions(opts []model.Option) []model.Option {
	out := make([]model.Option, len(opts))
	copy(out, opts)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
