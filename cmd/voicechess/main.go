package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voicechess/voicechess/pkg/asr"
	"github.com/voicechess/voicechess/pkg/endpoint"
	"github.com/voicechess/voicechess/pkg/game"
	"github.com/voicechess/voicechess/pkg/trace"
	"github.com/voicechess/voicechess/pkg/tts"
	"github.com/voicechess/voicechess/pkg/vad"
)

func main() {
	godotenv.Load()

	var (
		vadEngine   = flag.String("vad", "webrtc", "VAD engine: webrtc or silero")
		sileroModel = flag.String("silero-model", "silero_vad.onnx", "path to the silero VAD model (silero only)")
		aggr        = flag.Int("vad-aggressiveness", 0, "webrtc VAD aggressiveness, 0-3")

		asrURL = flag.String("asr-url", os.Getenv("TRANSCRIBE_SERVER_URL"), "transcription server URL; empty uses the OpenAI Whisper API")

		ttsURL   = flag.String("tts-url", os.Getenv("TTS_SERVER_URL"), "speech server URL; empty uses the OpenAI speech API")
		ttsVoice = flag.String("tts-voice", "onyx", "OpenAI speech voice (OpenAI TTS only)")

		enginePath = flag.String("engine", envOr("UCI_ENGINE_PATH", "stockfish"), "path to a UCI chess engine")
		skill      = flag.Int("skill", 15, "engine skill level, 0-20")
		moveTime   = flag.Duration("movetime", time.Second, "engine think time per move")
		playBlack  = flag.Bool("black", false, "play the black pieces")

		commentaryURL    = flag.String("commentary-url", os.Getenv("COMMENTARY_SERVER_URL"), "chat completions URL for commentary; empty disables commentary")
		commentaryModel  = flag.String("commentary-model", envOr("COMMENTARY_MODEL", "deepseek-r1"), "commentary model name")
		commentaryChance = flag.Float64("commentary-chance", 0.25, "probability of commentary after a player move")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := trace.Initialize(ctx, trace.DefaultConfig()); err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := trace.Shutdown(shutdownCtx); err != nil {
			log.Printf("failed to shutdown tracing: %v", err)
		}
	}()

	cfg := game.DefaultConfig()
	cfg.Endpoint.VADAggressiveness = *aggr
	cfg.HumanPlaysWhite = !*playBlack
	cfg.EnginePath = *enginePath
	cfg.EngineSkill = *skill
	cfg.EngineMoveTime = *moveTime
	cfg.CommentaryChance = *commentaryChance

	classifier, closeVAD, err := buildClassifier(*vadEngine, *sileroModel, cfg.Endpoint)
	if err != nil {
		log.Fatalf("failed to create VAD engine: %v", err)
	}
	defer closeVAD()

	transcriber, err := buildTranscriber(*asrURL)
	if err != nil {
		log.Fatalf("failed to create transcriber: %v", err)
	}

	speech, err := buildSpeech(*ttsURL, *ttsVoice)
	if err != nil {
		log.Fatalf("failed to create speech provider: %v", err)
	}

	var commentator *game.Commentator
	if *commentaryURL != "" {
		commentator, err = game.NewCommentator(*commentaryURL, os.Getenv("OPENAI_API_KEY"), *commentaryModel)
		if err != nil {
			log.Fatalf("failed to create commentator: %v", err)
		}
	}

	session, err := game.NewSession(cfg, classifier, transcriber, speech, commentator)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}

	if err := session.Run(ctx); err != nil {
		if ctx.Err() != nil {
			log.Printf("interrupted, exiting")
			return
		}
		log.Fatalf("session failed: %v", err)
	}
}

func buildClassifier(engine, sileroModel string, cfg endpoint.Config) (*vad.Classifier, func(), error) {
	var eng vad.Engine
	var err error
	switch engine {
	case "webrtc":
		eng, err = vad.NewWebRTCEngine(vad.WebRTCConfig{
			SampleRate:     cfg.SampleRate,
			Aggressiveness: cfg.VADAggressiveness,
		})
	case "silero":
		eng, err = vad.NewSileroEngine(vad.SileroConfig{
			ModelPath:  sileroModel,
			SampleRate: cfg.SampleRate,
		})
	default:
		err = fmt.Errorf("unknown VAD engine %q", engine)
	}
	if err != nil {
		return nil, nil, err
	}

	cls, err := vad.NewClassifier(eng)
	if err != nil {
		eng.Close()
		return nil, nil, err
	}
	return cls, func() { eng.Close() }, nil
}

func buildTranscriber(serverURL string) (asr.Provider, error) {
	if serverURL != "" {
		return asr.NewRemoteProvider(serverURL)
	}
	return asr.NewWhisperProvider(os.Getenv("OPENAI_API_KEY"))
}

func buildSpeech(serverURL, voice string) (tts.Provider, error) {
	if serverURL != "" {
		return tts.NewRemoteProvider(serverURL)
	}
	p, err := tts.NewOpenAIProvider(os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		return nil, err
	}
	p.SetVoice(voice)
	return p, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
