package bootstrap

import (
	"socialbot-be/internal/config"
	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/annotation"
	"socialbot-be/pkg/dialog"
	"socialbot-be/pkg/remote"
	"socialbot-be/pkg/responsegen/closing"
	"socialbot-be/pkg/responsegen/fallback"
	"socialbot-be/pkg/responsegen/food"
	"socialbot-be/pkg/responsegen/launch"
	"socialbot-be/pkg/rg"
	"socialbot-be/pkg/safety"

	"github.com/samber/oops"
)

// Dialog is the turn pipeline with the clients it was built from.
type Dialog struct {
	Controller *dialog.Controller
	Remote     *remote.Client
	Safety     *safety.Filter
}

// NewDialog wires the remote annotators, the safety filter and the response
// generators into a dialog controller on top of store.
func NewDialog(cfg *config.Config, store dialog.Store, log logger.ILogger, opts ...dialog.Option) (*Dialog, error) {
	services := make([]remote.ServiceConfig, 0, len(cfg.Remote.Services))
	for _, s := range cfg.Remote.Services {
		services = append(services, remote.ServiceConfig{
			Name:            s.Name,
			URL:             s.URL,
			RequiredContext: s.RequiredContext,
			Timeout:         s.Timeout,
			Retries:         s.Retries,
		})
	}
	client, err := remote.NewClient(services, log)
	if err != nil {
		return nil, oops.Errorf("remote client: %w", err)
	}

	registry, err := annotation.NewRegistry(annotation.Registered(annotation.DefaultAnnotators(client), client.Has)...)
	if err != nil {
		return nil, oops.Errorf("annotation registry: %w", err)
	}

	filter, err := safety.Load(cfg.Safety.BlacklistPath)
	if err != nil {
		return nil, err
	}

	launchRG, err := launch.New(log, filter)
	if err != nil {
		return nil, oops.Errorf("launch RG: %w", err)
	}
	foodRG, err := food.New(log)
	if err != nil {
		return nil, oops.Errorf("food RG: %w", err)
	}
	rgs := []rg.ResponseGenerator{launchRG, foodRG, closing.New(), fallback.New()}

	dcfg := dialog.Config{
		TurnTimeout:       cfg.Turn.TurnTimeout,
		AnnotationTimeout: cfg.Turn.AnnotationTimeout,
		RGTimeout:         cfg.Turn.RGTimeout,
		PersistTimeout:    cfg.Turn.PersistTimeout,
		LaunchRG:          cfg.Turn.LaunchRG,
		FallbackRG:        cfg.Turn.FallbackRG,
		Apology:           cfg.Turn.Apology,
		SafeUtterances:    cfg.Turn.SafeUtterances,
		Connectors:        cfg.Turn.Connectors,
		RecentWindow:      cfg.Turn.RecentWindow,
	}
	opts = append([]dialog.Option{dialog.WithClassifier(filter)}, opts...)
	ctl, err := dialog.New(dcfg, rgs, registry, store, log, opts...)
	if err != nil {
		return nil, oops.Errorf("dialog controller: %w", err)
	}

	log.Info("bootstrap", "Dialog ready", map[string]interface{}{
		"remote_services": client.Services(),
		"annotators":      registry.Names(),
		"rgs":             len(rgs),
	})
	return &Dialog{Controller: ctl, Remote: client, Safety: filter}, nil
}
