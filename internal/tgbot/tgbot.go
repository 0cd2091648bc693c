package tgbot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"

	"github.com/skjoshi/folio_tracker_bot/config"
	"github.com/skjoshi/folio_tracker_bot/data/session"
	"github.com/skjoshi/folio_tracker_bot/internal/model"
	"github.com/skjoshi/folio_tracker_bot/internal/model/tg/tgCallback"
	"github.com/skjoshi/folio_tracker_bot/internal/transport/telegram"
	customMW "github.com/skjoshi/folio_tracker_bot/internal/transport/telegram/middleware"
	"github.com/skjoshi/folio_tracker_bot/utils"
)

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type TGBot struct {
	bot     *tele.Bot
	ctrl    *telegram.Controller
	session Session
}

func New(cfg *config.Config, ctrl *telegram.Controller, session Session) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl, session: session}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	// free text lands on whichever dialog step the chat is in
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		ctx := utils.CreateCtxWithRqID(c)
		rqID := utils.GetRequestIDFromCtx(ctx)

		chatSession, err := b.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return c.Send("start with one of the commands, see /start")
			}
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send("something went wrong, try again later")
		}

		c.Set("session", chatSession)

		switch chatSession.Action {
		case model.ExpectingOwnerTag:
			return b.ctrl.ProcessSetOwner(c)
		case model.ExpectingAddLotInput:
			return b.ctrl.ProcessAddLot(c)
		case model.ExpectingSellInput:
			return b.ctrl.ProcessSell(c)
		case model.ExpectingEditLotInput:
			return b.ctrl.ProcessEditLot(c)
		default:
			return c.Send("start with one of the commands, see /start")
		}
	})

	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/portfolio", b.ctrl.Portfolio)
	b.bot.Handle("/summary", b.ctrl.Summary)
	b.bot.Handle("/sold", b.ctrl.Sold)
	b.bot.Handle("/report", b.ctrl.Report)
	b.bot.Handle("/addlot", b.ctrl.InitAddLot)
	b.bot.Handle("/sell", b.ctrl.InitSell)
	b.bot.Handle("/editlot", b.ctrl.InitEditLot)
	b.bot.Handle("/owner", b.ctrl.InitSetOwner)

	b.bot.Handle(&tele.Btn{Unique: tgCallback.ShowSummary}, b.ctrl.Summary)
	b.bot.Handle(&tele.Btn{Unique: tgCallback.ShowSold}, b.ctrl.Sold)
	b.bot.Handle(&tele.Btn{Unique: tgCallback.AddLot}, b.ctrl.InitAddLot)
	b.bot.Handle(&tele.Btn{Unique: tgCallback.SellHolding}, b.ctrl.InitSell)
	b.bot.Handle(&tele.Btn{Unique: tgCallback.ExportReport}, b.ctrl.Report)
}
