package collector

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/go-github/v55/github"

	"github.com/kurihiro0119/github-skill-analytics/internal/domain"
)

// GitHub computes repository statistics lazily: the first request answers
// 202 Accepted with an empty body and later requests return the series.

func (f *githubFetcher) commitActivity(ctx context.Context, owner, repo string) ([]domain.WeeklyCommits, error) {
	return pollStats(ctx, f, func(ctx context.Context) ([]domain.WeeklyCommits, *github.Response, error) {
		weeks, resp, err := f.client.Repositories.ListCommitActivity(ctx, owner, repo)
		if err != nil {
			return nil, resp, err
		}
		out := make([]domain.WeeklyCommits, 0, len(weeks))
		for _, w := range weeks {
			out = append(out, domain.WeeklyCommits{
				Week:  w.GetWeek().Time,
				Total: w.GetTotal(),
			})
		}
		return out, resp, nil
	})
}

func (f *githubFetcher) codeFrequency(ctx context.Context, owner, repo string) ([]domain.WeeklyCodeFrequency, error) {
	return pollStats(ctx, f, func(ctx context.Context) ([]domain.WeeklyCodeFrequency, *github.Response, error) {
		weeks, resp, err := f.client.Repositories.ListCodeFrequency(ctx, owner, repo)
		if err != nil {
			return nil, resp, err
		}
		out := make([]domain.WeeklyCodeFrequency, 0, len(weeks))
		for _, w := range weeks {
			out = append(out, domain.WeeklyCodeFrequency{
				Week:      w.GetWeek().Time,
				Additions: w.GetAdditions(),
				Deletions: w.GetDeletions(),
			})
		}
		return out, resp, nil
	})
}

// pollStats asks a statistics endpoint up to StatsAttempts times, pausing
// StatsDelay between attempts, while the answer is pending, empty or failed
// with a server error. A client error (4xx other than 202) ends polling early.
// Afterwards an empty series is accepted. Only context cancellation is an error.
func pollStats[T any](ctx context.Context, f *githubFetcher, call func(context.Context) ([]T, *github.Response, error)) ([]T, error) {
	for attempt := 1; ; attempt++ {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		series, resp, err := call(ctx)
		f.updateRateLimitFromResponse(resp)

		if err == nil && len(series) > 0 {
			return series, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var accepted *github.AcceptedError
		if err != nil && !errors.As(err, &accepted) {
			f.logger.Debug("statistics request failed", "attempt", attempt, "error", err)
			if isClientError(err) {
				return []T{}, nil
			}
		}

		if attempt >= f.opts.StatsAttempts {
			return []T{}, nil
		}

		timer := time.NewTimer(f.opts.StatsDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// isClientError reports a 4xx answer that a retry cannot change
func isClientError(err error) bool {
	var respErr *github.ErrorResponse
	if !errors.As(err, &respErr) || respErr.Response == nil {
		return false
	}
	code := respErr.Response.StatusCode
	return code >= http.StatusBadRequest && code < http.StatusInternalServerError
}
