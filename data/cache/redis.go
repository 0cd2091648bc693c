package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/skjoshi/folio_tracker_bot/config"
	"github.com/skjoshi/folio_tracker_bot/internal/model"
	"github.com/skjoshi/folio_tracker_bot/internal/model/navModel"
	"github.com/skjoshi/folio_tracker_bot/utils"
)

const (
	navKeyPrefix       = "nav:"
	quoteKeyPrefix     = "quote:"
	summaryKeyPrefix   = "summary:"
	positionsKeyPrefix = "positions:"
)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) SetNavs(ctx context.Context, navs []navModel.SchemeNav) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetNavs start", slog.String("rqID", rqID))

	pipe := r.redis.Pipeline()
	for _, nav := range navs {
		navJson, err := json.Marshal(nav)
		if err != nil {
			slog.Error(
				"can't marshall nav in SetNavs",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("nav", nav),
			)
			return errors.New("can't marshall nav")
		}

		pipe.Set(ctx, navKeyPrefix+nav.SchemeCode, navJson, r.cfg.Cache.NavExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetNavs completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetNav(ctx context.Context, schemeCode string) (navModel.SchemeNav, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetNav start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, navKeyPrefix+schemeCode).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("schemeCode", schemeCode))
		}
		return navModel.SchemeNav{}, err
	}

	nav := navModel.SchemeNav{}
	err = json.Unmarshal([]byte(res), &nav)
	if err != nil {
		slog.Error(
			"can't unmarshall nav in GetNav",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return navModel.SchemeNav{}, errors.New("can't unmarshall nav")
	}

	slog.Debug("GetNav finished", slog.String("rqID", rqID))

	return nav, nil
}

func (r *RedisCache) SetQuote(ctx context.Context, quote navModel.Quote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetQuote start", slog.String("rqID", rqID))

	quoteJson, err := json.Marshal(quote)
	if err != nil {
		slog.Error("can't marshall quote in SetQuote", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall quote")
	}

	err = r.redis.Set(ctx, quoteKeyPrefix+quote.Ticker, quoteJson, r.cfg.Cache.NavExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetQuote completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetQuote(ctx context.Context, ticker string) (navModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuote start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, quoteKeyPrefix+ticker).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("ticker", ticker))
		}
		return navModel.Quote{}, err
	}

	quote := navModel.Quote{}
	err = json.Unmarshal([]byte(res), &quote)
	if err != nil {
		slog.Error(
			"can't unmarshall quote in GetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return navModel.Quote{}, errors.New("can't unmarshall quote")
	}

	slog.Debug("GetQuote finished", slog.String("rqID", rqID))

	return quote, nil
}

func (r *RedisCache) SetSummary(ctx context.Context, owner string, summary model.PortfolioSummary) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetSummary start", slog.String("rqID", rqID))

	summaryJson, err := json.Marshal(summary)
	if err != nil {
		slog.Error("can't marshall summary in SetSummary", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall summary")
	}

	err = r.redis.Set(ctx, summaryKeyPrefix+owner, summaryJson, r.cfg.Cache.SummaryExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetSummary completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetSummary(ctx context.Context, owner string) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetSummary start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, summaryKeyPrefix+owner).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("owner", owner))
		}
		return model.PortfolioSummary{}, err
	}

	summary := model.PortfolioSummary{}
	err = json.Unmarshal([]byte(res), &summary)
	if err != nil {
		slog.Error(
			"can't unmarshall summary in GetSummary",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.PortfolioSummary{}, errors.New("can't unmarshall summary")
	}

	slog.Debug("GetSummary finished", slog.String("rqID", rqID))

	return summary, nil
}

func (r *RedisCache) SetPositions(ctx context.Context, owner string, positions []model.MergedPosition) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetPositions start", slog.String("rqID", rqID))

	positionsJson, err := json.Marshal(positions)
	if err != nil {
		slog.Error("can't marshall positions in SetPositions", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall positions")
	}

	err = r.redis.Set(ctx, positionsKeyPrefix+owner, positionsJson, r.cfg.Cache.SummaryExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetPositions completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetPositions(ctx context.Context, owner string) ([]model.MergedPosition, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetPositions start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, positionsKeyPrefix+owner).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("owner", owner))
		}
		return nil, err
	}

	positions := make([]model.MergedPosition, 0)
	err = json.Unmarshal([]byte(res), &positions)
	if err != nil {
		slog.Error(
			"can't unmarshall positions in GetPositions",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return nil, errors.New("can't unmarshall positions")
	}

	slog.Debug("GetPositions finished", slog.String("rqID", rqID))

	return positions, nil
}

// FlushOwner drops the owner's derived views after any mutation so the
// next read recomputes from lots.
func (r *RedisCache) FlushOwner(ctx context.Context, owner string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("FlushOwner start", slog.String("rqID", rqID))

	err := r.redis.Del(ctx, summaryKeyPrefix+owner, positionsKeyPrefix+owner).Err()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("owner", owner))
		return err
	}

	slog.Debug("FlushOwner completed", slog.String("rqID", rqID))

	return nil
}
