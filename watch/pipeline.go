package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Outcome int

const (
	// self-authored, or already liked
	OutcomeSkipped Outcome = iota
	OutcomeNotTarget
	OutcomeLikedSpam
	OutcomeLikedIssue
	OutcomeLikedAcknowledged
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNotTarget:
		return "not-target"
	case OutcomeLikedSpam:
		return "liked-spam"
	case OutcomeLikedIssue:
		return "liked-issue"
	case OutcomeLikedAcknowledged:
		return "liked-acknowledged"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the report for one processed post. It is not persisted.
type Result struct {
	Post           *Post
	Outcome        Outcome
	Classification *Classification
	// Liked is true once the like action succeeded, even if a later step failed.
	Liked bool
	Err   error
	// TranslationErr is reported separately and never changes Outcome.
	TranslationErr error
}

// Pipeline decides and executes the reaction to a single candidate post.
//
// Every post gets exactly one Outcome. Errors never escape ProcessPost: they are
// logged, sent to the Notifier with a snapshot of the post, and returned in the
// Result.
type Pipeline struct {
	Logger     *slog.Logger
	Social     SocialClient
	Classifier Classifier
	Notifier   Notifier
	Tracker    *EngagementTracker
	Reference  Reference
	// CheckReplies looks for an existing reply from this account before posting
	// a corrective reply.
	CheckReplies bool
	// Language is the translation target, used to label translation messages.
	Language string
}

func (p *Pipeline) ProcessPost(ctx context.Context, post *Post) (res Result) {
	ctx, span := tracer.Start(ctx, "ProcessPost")
	defer span.End()
	span.SetAttributes(attribute.String("uri", post.URI))

	res = Result{Post: post}
	logger := p.Logger.With("uri", post.URI, "author", post.AuthorDID)

	// similar to an HTTP server, we want to recover any panics from a single post
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("panic while processing post: %v", r)
			p.reportFailure(ctx, logger, post, res.Err)
		}
		if res.Err != nil {
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.SetAttributes(attribute.String("outcome", res.Outcome.String()))
		postsProcessed.WithLabelValues(res.Outcome.String()).Inc()
	}()

	if p.shouldSkip(post) {
		logger.Debug("skipping post")
		res.Outcome = OutcomeSkipped
		return res
	}

	if err := p.react(ctx, logger, post, &res); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		p.reportFailure(ctx, logger, post, err)
		return res
	}
	logger.Info("processed post", "outcome", res.Outcome)
	return res
}

func (p *Pipeline) shouldSkip(post *Post) bool {
	return post.AuthorDID == p.Social.SelfDID() || p.Tracker.HasEngaged(post)
}

func (p *Pipeline) react(ctx context.Context, logger *slog.Logger, post *Post, res *Result) error {
	start := time.Now()
	cls, err := p.Classifier.Analyze(ctx, post.Text)
	classifyDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("classifying post: %w", err)
	}
	res.Classification = cls

	postURL := p.Social.PostURL(post)
	logger.Info("classified post", "url", postURL, "isTarget", cls.IsTarget, "isIssue", cls.IsIssue, "hasSpamUrl", cls.HasSpamURL)
	if !cls.IsTarget {
		res.Outcome = OutcomeNotTarget
		return nil
	}

	// the like always comes first, and is recorded as soon as it succeeds
	if err := p.Social.Like(ctx, post); err != nil {
		return fmt.Errorf("liking post: %w", err)
	}
	p.Tracker.RecordEngagement(post)
	res.Liked = true

	switch {
	case cls.HasSpamURL:
		res.Outcome = OutcomeLikedSpam
		if err := p.handleSpam(ctx, logger, post, postURL); err != nil {
			return err
		}
	case cls.IsIssue:
		res.Outcome = OutcomeLikedIssue
		p.notify(ctx, logger, issueMessage(postURL))
	default:
		res.Outcome = OutcomeLikedAcknowledged
		p.notify(ctx, logger, acknowledgedMessage(postURL))
	}

	res.TranslationErr = p.notifyTranslation(ctx, logger, post.Text)
	return nil
}

func (p *Pipeline) handleSpam(ctx context.Context, logger *slog.Logger, post *Post, postURL string) error {
	if p.CheckReplies {
		replied, err := p.Social.HasRepliedAlready(ctx, post)
		if err != nil {
			return fmt.Errorf("checking for existing reply: %w", err)
		}
		if replied {
			logger.Info("corrective reply already exists")
			p.notify(ctx, logger, spamAlreadyRepliedMessage(postURL))
			return nil
		}
	}

	ref := p.Reference
	link := ExternalLink{
		URL:         ref.LinkURL,
		Title:       ref.LinkTitle,
		Description: ref.LinkDescription,
	}
	if ref.ThumbURL != "" {
		thumb, err := p.Social.UploadImage(ctx, ref.ThumbURL)
		if err != nil {
			return fmt.Errorf("uploading reply thumbnail: %w", err)
		}
		link.Thumb = thumb
	}
	quote := QuoteRef{URI: ref.QuoteURI, CID: ref.QuoteCID}
	if err := p.Social.ReplyWithQuoteAndLink(ctx, post, ref.ReplyText, link, quote); err != nil {
		return fmt.Errorf("posting corrective reply: %w", err)
	}
	p.notify(ctx, logger, spamMessage(postURL))
	return nil
}

// Translation is best-effort. When it fails no translation message is sent;
// the failure is logged and returned for the Result.
func (p *Pipeline) notifyTranslation(ctx context.Context, logger *slog.Logger, text string) error {
	tr, err := p.Classifier.Translate(ctx, text)
	if err != nil {
		logger.Warn("translation failed", "err", err)
		return fmt.Errorf("translating post: %w", err)
	}
	p.notify(ctx, logger, translationMessage(p.Language, tr.TranslatedText))
	return nil
}

func (p *Pipeline) reportFailure(ctx context.Context, logger *slog.Logger, post *Post, err error) {
	logger.Error("failed to process post", "err", err)
	p.notify(ctx, logger, errorMessage(err, post))
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, msg Message) {
	if err := p.Notifier.Notify(ctx, msg); err != nil {
		notifyErrors.Inc()
		logger.Warn("notification delivery failed", "err", err)
	}
}
