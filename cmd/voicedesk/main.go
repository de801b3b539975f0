package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/voicedesk/voicedesk/pkg/core/reply"
	"github.com/voicedesk/voicedesk/pkg/core/voice/stt"
	"github.com/voicedesk/voicedesk/pkg/core/voice/tts"
	"github.com/voicedesk/voicedesk/pkg/gateway/config"
	"github.com/voicedesk/voicedesk/pkg/gateway/metrics"
	gatewayserver "github.com/voicedesk/voicedesk/pkg/gateway/server"
	"github.com/voicedesk/voicedesk/pkg/gateway/stream/sessions"
)

type appDeps struct {
	loadConfig   func() (config.Config, error)
	loadRules    func(path string) (*reply.RuleEngine, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultAppDeps() appDeps {
	return appDeps{
		loadConfig: config.LoadFromEnv,
		loadRules:  reply.LoadRules,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildSynthesizer(cfg config.Config, logger *slog.Logger, mets *metrics.Metrics) tts.Synthesizer {
	primary := tts.NewClient(cfg.TTSBaseURL, cfg.TTSAPIKey,
		tts.WithName("tts-primary"),
		tts.WithModel(cfg.TTSModel),
		tts.WithVoice(cfg.TTSVoice))
	if cfg.TTSFallbackBaseURL == "" {
		return primary
	}
	secondary := tts.NewClient(cfg.TTSFallbackBaseURL, cfg.TTSFallbackAPIKey,
		tts.WithName("tts-fallback"),
		tts.WithModel(cfg.TTSFallbackModel),
		tts.WithVoice(cfg.TTSFallbackVoice))
	fb := tts.NewFallback(primary, secondary, logger)
	fb.OnFallback = mets.RecordTTSFallback
	return fb
}

func run(ctx context.Context, logger *slog.Logger, deps appDeps) error {
	if deps.loadConfig == nil || deps.loadRules == nil {
		return errors.New("missing config dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rules, err := deps.loadRules(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	store := sessions.NewStore(cfg.ConversationGrace)
	mets := metrics.New(cfg.MetricsNamespace)

	transcriber := stt.NewClient(cfg.STTBaseURL, cfg.STTAPIKey,
		stt.WithModel(cfg.STTModel),
		stt.WithLanguage(cfg.STTLanguage))

	gw := gatewayserver.New(cfg, logger, gatewayserver.Dependencies{
		Store:       store,
		Transcriber: transcriber,
		Synthesizer: buildSynthesizer(cfg, logger, mets),
		Replies:     rules,
		Greeter:     rules,
		Metrics:     mets,
	})
	httpSrv := gw.HTTPServer()

	logger.Info("starting gateway", "addr", cfg.Addr, "rules", cfg.RulesPath)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer waitCancel()
	if !store.Wait(waitCtx) {
		logger.Warn("canceling calls still live at shutdown", "count", store.ActiveCalls())
		store.CancelAll()
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("gateway stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps appDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(stderr, "voicedesk: %v\n", err)
		return 1
	}

	if err := run(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "voicedesk: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultAppDeps()))
}
