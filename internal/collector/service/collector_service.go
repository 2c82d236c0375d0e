package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"

	"github.com/mathieupelo/sentiment-reddit/internal/collector/config"
	"github.com/mathieupelo/sentiment-reddit/internal/collector/dto"
	"github.com/mathieupelo/sentiment-reddit/internal/collector/repository"
	"github.com/mathieupelo/sentiment-reddit/internal/entity"
	"github.com/mathieupelo/sentiment-reddit/pkg/logger"
	"github.com/mathieupelo/sentiment-reddit/pkg/redis"
	"github.com/mathieupelo/sentiment-reddit/pkg/utils"
)

// CollectorService gathers ticker-relevant Reddit posts into the corpus.
// It runs one pass per cron tick; passes are idempotent because every
// dedup layer tolerates replays.
type CollectorService interface {
	Start(ctx context.Context) error
	RunOnce(ctx context.Context) (*dto.CollectionSummary, error)
}

// NewCollectorService creates a new CollectorService. redisClient may be
// nil, in which case dedup relies on the in-process cache and the unique
// index alone.
func NewCollectorService(
	cfg *config.Config,
	log *logger.Logger,
	searchRepo repository.RedditSearchRepository,
	feedRepo repository.RedditFeedRepository,
	storeRepo repository.RedditPostStoreRepository,
	redisClient *redis.Client,
) CollectorService {
	memTTL, err := time.ParseDuration(cfg.Dedup.MemoryTTL)
	if err != nil {
		memTTL = 30 * time.Minute
	}
	redisTTL, err := time.ParseDuration(cfg.Dedup.RedisTTL)
	if err != nil {
		redisTTL = 7 * 24 * time.Hour
	}
	return &collectorService{
		cfg:         cfg,
		logger:      log,
		searchRepo:  searchRepo,
		feedRepo:    feedRepo,
		storeRepo:   storeRepo,
		redisClient: redisClient,
		redisTTL:    redisTTL,
		seenCache:   cache.New(memTTL, 2*memTTL),
	}
}

type collectorService struct {
	cfg         *config.Config
	logger      *logger.Logger
	searchRepo  repository.RedditSearchRepository
	feedRepo    repository.RedditFeedRepository
	storeRepo   repository.RedditPostStoreRepository
	redisClient *redis.Client
	redisTTL    time.Duration
	seenCache   *cache.Cache
}

// Start schedules collection passes on the configured cron spec and
// blocks until the context is cancelled.
func (s *collectorService) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.cfg.Collector.CronSpec, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("Collection pass failed", logger.ErrorField(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule collection: %w", err)
	}

	c.Start()
	s.logger.Info("Collector started", logger.StringField("cron_spec", s.cfg.Collector.CronSpec))

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}

// RunOnce executes a single collection pass over ticker × subreddit.
func (s *collectorService) RunOnce(ctx context.Context) (*dto.CollectionSummary, error) {
	startedAt := time.Now()

	tickers, err := s.storeRepo.GetActiveTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickers: %w", err)
	}

	summary := dto.CollectionSummary{
		Tickers:    len(tickers),
		Subreddits: len(s.cfg.Reddit.Subreddits),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	semaphore := make(chan struct{}, s.cfg.Collector.MaxConcurrentTickers)

	for _, ticker := range tickers {
		if !utils.ShouldContinue(ctx, s.logger) {
			break
		}

		ticker := ticker
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			fetched, inserted, skipped := s.collectTicker(ctx, ticker)

			mu.Lock()
			summary.Fetched += fetched
			summary.Inserted += inserted
			summary.Skipped += skipped
			mu.Unlock()
		})
	}
	wg.Wait()

	if s.cfg.Feed.Enabled {
		fetched, inserted, skipped := s.collectFeeds(ctx, tickers)
		summary.Fetched += fetched
		summary.Inserted += inserted
		summary.Skipped += skipped
	}

	summary.Duration = time.Since(startedAt)
	s.logger.Info("Collection pass completed",
		logger.IntField("fetched", summary.Fetched),
		logger.Field("inserted", summary.Inserted),
		logger.IntField("skipped", summary.Skipped),
		logger.Field("duration", summary.Duration),
	)
	return &summary, nil
}

// collectTicker searches every configured subreddit for each of the
// ticker's terms and stores the new posts.
func (s *collectorService) collectTicker(ctx context.Context, ticker entity.Ticker) (fetched int, inserted int64, skipped int) {
	var batch []entity.RedditPost
	inBatch := make(map[string]struct{})

	for _, subreddit := range s.cfg.Reddit.Subreddits {
		for _, term := range ticker.SearchTerms() {
			if !utils.ShouldContinue(ctx, s.logger) {
				return
			}

			posts, err := s.searchRepo.Search(ctx, subreddit, term)
			if err != nil {
				s.logger.Warn("Subreddit search failed",
					logger.StringField("subreddit", subreddit),
					logger.StringField("term", term),
					logger.ErrorField(err),
				)
				continue
			}
			fetched += len(posts)

			for _, post := range posts {
				if _, dup := inBatch[post.ID]; dup || s.alreadySeen(ctx, post.ID) {
					skipped++
					continue
				}
				entityPost, ok := s.toEntity(post, ticker.Symbol, term)
				if !ok {
					skipped++
					continue
				}
				inBatch[post.ID] = struct{}{}
				batch = append(batch, entityPost)
			}
		}
	}

	n, err := s.storeRepo.SaveBatch(ctx, batch)
	if err != nil {
		s.logger.Error("Failed to save collected posts",
			logger.StringField("ticker", ticker.Symbol),
			logger.ErrorField(err),
		)
		return
	}
	inserted = n
	s.markSeen(ctx, batch)

	s.logger.Info("Collected ticker",
		logger.StringField("ticker", ticker.Symbol),
		logger.IntField("fetched", fetched),
		logger.Field("inserted", inserted),
		logger.IntField("skipped", skipped),
	)
	return
}

// collectFeeds walks each subreddit's new-post feed once and attributes
// entries to tickers by term match.
func (s *collectorService) collectFeeds(ctx context.Context, tickers []entity.Ticker) (fetched int, inserted int64, skipped int) {
	for _, subreddit := range s.cfg.Reddit.Subreddits {
		if !utils.ShouldContinue(ctx, s.logger) {
			return
		}

		posts, err := s.feedRepo.FetchNew(ctx, subreddit)
		if err != nil {
			s.logger.Warn("Subreddit feed fetch failed",
				logger.StringField("subreddit", subreddit),
				logger.ErrorField(err),
			)
			continue
		}
		fetched += len(posts)

		var batch []entity.RedditPost
		inBatch := make(map[string]struct{})
		for _, post := range posts {
			symbol, term := matchTicker(tickers, post.Title+" "+post.SelfText)
			if symbol == "" {
				skipped++
				continue
			}
			if _, dup := inBatch[post.ID]; dup || s.alreadySeen(ctx, post.ID) {
				skipped++
				continue
			}
			entityPost, ok := s.toEntity(post, symbol, term)
			if !ok {
				skipped++
				continue
			}
			inBatch[post.ID] = struct{}{}
			batch = append(batch, entityPost)
		}

		n, err := s.storeRepo.SaveBatch(ctx, batch)
		if err != nil {
			s.logger.Error("Failed to save feed posts",
				logger.StringField("subreddit", subreddit),
				logger.ErrorField(err),
			)
			continue
		}
		inserted += n
		s.markSeen(ctx, batch)
	}
	return
}

// toEntity converts an API post to the stored shape, applying the age
// cap. Returns false when the post should be skipped.
func (s *collectorService) toEntity(post dto.RedditPostData, symbol, term string) (entity.RedditPost, bool) {
	createdAt := time.Unix(int64(post.CreatedUTC), 0).UTC()
	maxAge := time.Duration(s.cfg.Collector.MaxPostAgeDays) * 24 * time.Hour
	if post.CreatedUTC <= 0 || time.Since(createdAt) > maxAge {
		return entity.RedditPost{}, false
	}

	return entity.RedditPost{
		RedditID:       post.ID,
		Title:          utils.CleanToValidUTF8(post.Title),
		Content:        utils.CleanToValidUTF8(post.SelfText),
		Author:         post.Author,
		Subreddit:      post.Subreddit,
		Score:          post.Score,
		NumComments:    post.NumComments,
		CreatedAt:      createdAt,
		Ticker:         symbol,
		KeywordMatched: term,
	}, true
}

// alreadySeen reports whether the post ID is in the in-process or Redis
// caches. It never writes: IDs are marked only after a successful save,
// so a failed batch stays collectable on the next pass. Redis errors
// degrade to "not seen".
func (s *collectorService) alreadySeen(ctx context.Context, redditID string) bool {
	if _, found := s.seenCache.Get(redditID); found {
		return true
	}
	if s.redisClient == nil {
		return false
	}
	key := fmt.Sprintf("%s:%s", s.cfg.Dedup.RedisIndex, redditID)
	n, err := s.redisClient.Exists(ctx, key).Result()
	if err != nil {
		s.logger.Warn("Seen cache unavailable", logger.ErrorField(err))
		return false
	}
	return n > 0
}

// markSeen records the saved posts in both dedup caches.
func (s *collectorService) markSeen(ctx context.Context, batch []entity.RedditPost) {
	for _, post := range batch {
		s.seenCache.Set(post.RedditID, struct{}{}, cache.DefaultExpiration)
		if s.redisClient == nil {
			continue
		}
		key := fmt.Sprintf("%s:%s", s.cfg.Dedup.RedisIndex, post.RedditID)
		if err := s.redisClient.SetNX(ctx, key, 1, s.redisTTL).Err(); err != nil {
			s.logger.Warn("Seen cache unavailable", logger.ErrorField(err))
			return
		}
	}
}

// matchTicker returns the first ticker whose terms appear in the text.
func matchTicker(tickers []entity.Ticker, text string) (symbol, term string) {
	lower := strings.ToLower(text)
	for _, ticker := range tickers {
		for _, t := range ticker.SearchTerms() {
			if strings.Contains(lower, t) {
				return ticker.Symbol, t
			}
		}
	}
	return "", ""
}
