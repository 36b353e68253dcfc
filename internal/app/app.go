// Package app assembles the services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"maternal-care-agent/internal/adapter/gemini"
	"maternal-care-agent/internal/adapter/httpapi"
	"maternal-care-agent/internal/adapter/memory"
	"maternal-care-agent/internal/adapter/mongostore"
	"maternal-care-agent/internal/adapter/openai"
	"maternal-care-agent/internal/adapter/places"
	"maternal-care-agent/internal/adapter/records"
	"maternal-care-agent/internal/adapter/sqlstore"
	"maternal-care-agent/internal/adapter/telegram"
	"maternal-care-agent/internal/config"
	"maternal-care-agent/internal/domain"
	"maternal-care-agent/internal/policy"
	"maternal-care-agent/internal/usecase/chat"
	"maternal-care-agent/internal/usecase/escalation"
	"maternal-care-agent/internal/usecase/triage"
	"maternal-care-agent/internal/usecase/tts"
)

// App holds the wired services.
type App struct {
	Config   config.Config
	Chat     *chat.Service
	Triage   *triage.Service
	Finder   escalation.FacilityFinder
	Geocoder httpapi.Geocoder // nil without a Google Maps key
	Patients domain.PatientDirectory

	closers []func(context.Context) error
}

// Build wires every component. Optional integrations that cannot be reached
// are logged and left out; the corresponding escalation action then reports
// itself unavailable.
func Build(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*App, error) {
	a := &App{Config: cfg}

	providers, err := Providers(cfg)
	if err != nil {
		return nil, err
	}

	repo, err := a.transcripts(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := memory.NewStore(cfg.AssistantPrompt, repo, log)

	engine, err := policy.NewEngineFromFile(ctx, cfg.EscalationPolicyFile)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	directory := places.NewDirectory(places.NairobiFacilities)
	a.Finder = directory
	if cfg.GoogleMapsKey != "" {
		p, err := places.NewPlaces(cfg.GoogleMapsKey, directory, log)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
		}
		a.Finder = p
		a.Geocoder = p
	}

	var speech escalation.Synthesizer
	if cfg.OpenAIKey != "" {
		speech = tts.NewService(openai.NewClient(config.ProviderOpenAI, cfg.OpenAIKey, "", cfg.OpenAIModel, cfg.Temperature), cfg)
	} else {
		log.Warn("OPENAI_API_KEY not set, audio alerts disabled")
	}

	var notifier escalation.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramAlertChatID != 0 {
		api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			log.WithError(err).Warn("telegram unavailable, health worker alerts disabled")
		} else {
			notifier = telegram.NewNotifier(api, cfg.TelegramAlertChatID)
		}
	}

	coordinator := escalation.NewCoordinator(engine, a.Finder, speech, notifier, cfg.EscalationTimeout, log)
	classifier := triage.NewClassifier(triage.DefaultRules)
	a.Patients = records.NewDirectory(cfg.PatientRecordsPath)

	chain := chat.NewChain(providers, chat.NewResponder(), cfg.ProviderTimeout, log)
	a.Chat = chat.NewService(store, chain, classifier, coordinator, cfg, log)
	a.Triage = triage.NewService(classifier, a.Patients, coordinator, cfg.AlertLanguage, log)

	log.WithFields(logrus.Fields{
		"providers": chain.Providers(),
		"store":     cfg.StoreDriver,
	}).Info("services ready")
	return a, nil
}

// Providers builds the generative providers in configured order.
func Providers(cfg config.Config) ([]chat.Provider, error) {
	names := cfg.GenerativeProviders()
	out := make([]chat.Provider, 0, len(names))
	for _, name := range names {
		switch name {
		case config.ProviderMistral:
			out = append(out, openai.NewClient(name, cfg.MistralKey, cfg.MistralBaseURL, cfg.MistralModel, cfg.Temperature))
		case config.ProviderAIML:
			out = append(out, openai.NewClient(name, cfg.AIMLKey, cfg.AIMLBaseURL, cfg.AIMLModel, cfg.Temperature))
		case config.ProviderOpenAI:
			out = append(out, openai.NewClient(name, cfg.OpenAIKey, "", cfg.OpenAIModel, cfg.Temperature))
		case config.ProviderGemini:
			out = append(out, gemini.NewClient(cfg.GeminiKey, cfg.GeminiBaseURL, cfg.GeminiModel, cfg.Temperature))
		default:
			return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrConfiguration, name)
		}
	}
	return out, nil
}

func (a *App) transcripts(ctx context.Context, cfg config.Config) (domain.TranscriptRepository, error) {
	switch cfg.StoreDriver {
	case "", "memory":
		return nil, nil
	case "sqlite", "postgres":
		db, err := sqlstore.Open(cfg.StoreDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		return db, nil
	case "mongo":
		client, repo, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
		}
		a.closers = append(a.closers, client.Disconnect)
		return repo, nil
	}
	return nil, fmt.Errorf("%w: unknown STORE_DRIVER %q", domain.ErrConfiguration, cfg.StoreDriver)
}

// Close releases storage connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
