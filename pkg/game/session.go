package game

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/voicechess/voicechess/pkg/asr"
	"github.com/voicechess/voicechess/pkg/audio"
	"github.com/voicechess/voicechess/pkg/endpoint"
	"github.com/voicechess/voicechess/pkg/trace"
	"github.com/voicechess/voicechess/pkg/tts"
	"github.com/voicechess/voicechess/pkg/vad"
)

const welcomeAnnouncement = "Welcome to Voice Chess! This is Magnus Carlsen speaking. " +
	"Do you want to play a game? Begin by saying your moves out loud. I'll let you go first."

// Config holds the session settings.
type Config struct {
	// Endpoint is the detector tuning for listening to moves.
	Endpoint endpoint.Config

	// HumanPlaysWhite selects the human's side.
	HumanPlaysWhite bool

	// EnginePath is the path to a UCI engine binary (e.g. stockfish).
	EnginePath string
	// EngineSkill is the engine's Skill Level option, 0-20.
	EngineSkill int
	// EngineMoveTime is the per-move think time.
	EngineMoveTime time.Duration

	// CommentaryChance is the probability of spoken commentary after a
	// human move, in [0, 1]. Zero disables commentary.
	CommentaryChance float64
}

// DefaultConfig returns the reference session settings.
func DefaultConfig() Config {
	return Config{
		Endpoint:        endpoint.DefaultConfig(),
		HumanPlaysWhite: true,
		EngineSkill:     15,
		EngineMoveTime:  time.Second,
	}
}

// Session is one game of voice chess against a UCI engine.
type Session struct {
	cfg Config

	detector    *endpoint.Detector
	classifier  *vad.Classifier
	transcriber asr.Provider
	speech      tts.Provider
	commentator *Commentator // optional
	player      *audio.Player

	game *chess.Game
	eng  *uci.Engine
	rng  *rand.Rand
	out  io.Writer
}

// NewSession creates a session. classifier wraps the configured VAD engine;
// commentator may be nil.
func NewSession(cfg Config, classifier *vad.Classifier, transcriber asr.Provider, speech tts.Provider, commentator *Commentator) (*Session, error) {
	if err := cfg.Endpoint.IsValid(); err != nil {
		return nil, fmt.Errorf("game: invalid endpoint config: %w", err)
	}
	if classifier == nil {
		return nil, fmt.Errorf("game: classifier is required")
	}
	if transcriber == nil {
		return nil, fmt.Errorf("game: transcriber is required")
	}
	if speech == nil {
		return nil, fmt.Errorf("game: speech provider is required")
	}
	if cfg.EnginePath == "" {
		return nil, fmt.Errorf("game: engine path is required")
	}

	detector, err := endpoint.NewDetector(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	return &Session{
		cfg:         cfg,
		detector:    detector,
		classifier:  classifier,
		transcriber: transcriber,
		speech:      speech,
		commentator: commentator,
		player:      audio.NewPlayer(),
		game:        chess.NewGame(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		out:         os.Stdout,
	}, nil
}

// Run plays one full game. It returns when the game is over, the context
// is cancelled, or a collaborator fails fatally.
func (s *Session) Run(ctx context.Context) error {
	eng, err := uci.New(s.cfg.EnginePath)
	if err != nil {
		return fmt.Errorf("game: failed to start engine: %w", err)
	}
	defer eng.Close()
	s.eng = eng

	if err := eng.Run(uci.CmdUCI, uci.CmdIsReady, uci.CmdUCINewGame); err != nil {
		return fmt.Errorf("game: engine handshake failed: %w", err)
	}
	if err := eng.Run(uci.CmdSetOption{Name: "Skill Level", Value: strconv.Itoa(s.cfg.EngineSkill)}); err != nil {
		log.Printf("[game] engine ignored Skill Level option: %v", err)
	}

	Render(s.out, s.game, "Game start")
	s.speak(ctx, welcomeAnnouncement)

	endReason := ""
	for s.game.Outcome() == chess.NoOutcome {
		if err := ctx.Err(); err != nil {
			return err
		}

		humanToMove := (s.game.Position().Turn() == chess.White) == s.cfg.HumanPlaysWhite
		if humanToMove {
			done, reason, err := s.humanTurn(ctx)
			if err != nil {
				return err
			}
			if done {
				endReason = reason
				break
			}
		} else {
			if err := s.engineTurn(ctx); err != nil {
				return err
			}
		}
	}

	s.announceResult(ctx, endReason)
	return nil
}

// humanTurn listens for one spoken command and applies it. done reports
// that the game ended by resignation or agreed draw.
func (s *Session) humanTurn(ctx context.Context) (done bool, reason string, err error) {
	log.Printf("[game] player's turn")

	text, err := s.listenForCommand(ctx)
	if err != nil {
		return false, "", err
	}
	log.Printf("[game] transcription: %s", text)

	switch strings.ToLower(text) {
	case "resign":
		s.game.Resign(s.humanColor())
		return true, "resign", nil
	case "draw":
		// The engine accepts an offered draw 30% of the time.
		if s.rng.Float64() < 0.3 {
			s.game.Draw(chess.DrawOffer)
			Render(s.out, s.game, "Draw offer accepted")
			return true, "draw", nil
		}
		s.speak(ctx, "I decline your draw offer. Let's continue.")
		Render(s.out, s.game, "Draw offer declined")
		return false, "", nil
	}

	notation := chess.AlgebraicNotation{}
	move, err := notation.Decode(s.game.Position(), text)
	if err != nil {
		s.speak(ctx, fmt.Sprintf("Did you try to play %s? That isn't a legal move. Please try again.", DescribeSAN(text)))
		Render(s.out, s.game, fmt.Sprintf("Player move: %s - Invalid!", text))
		return false, "", nil
	}
	if err := s.game.Move(move); err != nil {
		s.speak(ctx, fmt.Sprintf("Did you try to play %s? That isn't a legal move. Please try again.", DescribeSAN(text)))
		Render(s.out, s.game, fmt.Sprintf("Player move: %s - Invalid!", text))
		return false, "", nil
	}

	Render(s.out, s.game, fmt.Sprintf("Player move: %s", text))
	s.maybeComment(ctx)
	return false, "", nil
}

// engineTurn asks the UCI engine for its move, announces it and applies it.
func (s *Session) engineTurn(ctx context.Context) error {
	log.Printf("[game] engine is thinking")

	pos := s.game.Position()
	if err := s.eng.Run(uci.CmdPosition{Position: pos}, uci.CmdGo{MoveTime: s.cfg.EngineMoveTime}); err != nil {
		return fmt.Errorf("game: engine search failed: %w", err)
	}
	move := s.eng.SearchResults().BestMove
	if move == nil {
		return fmt.Errorf("game: engine failed to find a move")
	}

	notation := chess.AlgebraicNotation{}
	san := notation.Encode(pos, move)

	side := "white"
	if pos.Turn() == chess.Black {
		side = "black"
	}
	s.speak(ctx, DescribeSANFirstPerson(san, side))

	if err := s.game.Move(move); err != nil {
		return fmt.Errorf("game: engine move %s rejected: %w", san, err)
	}
	Render(s.out, s.game, fmt.Sprintf("Engine move: %s", san))
	return nil
}

// listenForCommand captures one utterance and transcribes it. The detector
// runs on its own goroutine and delivers over a channel consumed with a
// timeout-based receive so the status line keeps refreshing while waiting.
func (s *Session) listenForCommand(ctx context.Context) (string, error) {
	if err := s.player.Beep(ctx); err != nil {
		log.Printf("[game] listen cue failed: %v", err)
	}

	// Stateful VAD engines carry hysteresis across streams; clear it so a
	// previous cycle cut off mid-speech cannot label this one's opening
	// silence as voiced.
	if err := s.classifier.Reset(); err != nil {
		return "", fmt.Errorf("game: failed to reset VAD engine: %w", err)
	}

	cfg := s.detector.Config()
	capture, err := audio.OpenCapture(audio.CaptureConfig{
		SampleRate:    cfg.SampleRate,
		Channels:      1,
		FrameDuration: cfg.FrameDuration,
	})
	if err != nil {
		return "", fmt.Errorf("game: failed to open microphone: %w", err)
	}
	defer capture.Close()

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type listenResult struct {
		utt *endpoint.Utterance
		err error
	}
	results := make(chan listenResult, 1)

	go func() {
		var res listenResult
		res.err = trace.WithSpan(listenCtx, "endpoint.listen", func(spanCtx context.Context) error {
			var err error
			res.utt, err = s.detector.Listen(spanCtx, capture, s.classifier)
			return err
		})
		results <- res
	}()

	log.Printf("[game] listening for your chess move...")
	waited := 0
	var res listenResult
	for {
		select {
		case res = <-results:
		case <-time.After(time.Second):
			waited++
			fmt.Fprintf(s.out, "\rListening... %2ds", waited)
			continue
		}
		break
	}
	fmt.Fprintln(s.out)

	if res.err != nil {
		return "", res.err
	}

	var text string
	err = trace.WithSpan(ctx, "asr.transcribe", func(spanCtx context.Context) error {
		var err error
		text, err = s.transcriber.Transcribe(spanCtx, res.utt.PCM, res.utt.SampleRate)
		return err
	}, oteltrace.WithAttributes(
		trace.Attr("utterance.id", res.utt.ID),
		trace.Attr("asr.provider", s.transcriber.Name()),
	))
	if err != nil {
		return "", err
	}

	// The model may wrap the move in extra words; the command is the
	// first token.
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], nil
}

// maybeComment speaks one sentence of commentary with the configured
// probability.
func (s *Session) maybeComment(ctx context.Context) {
	if s.commentator == nil || s.rng.Float64() >= s.cfg.CommentaryChance {
		return
	}

	comment, err := s.commentator.Comment(ctx, s.game.String())
	if err != nil {
		log.Printf("[game] commentary failed: %v", err)
		return
	}
	log.Printf("[game] commentary: %s", comment)
	s.speak(ctx, comment)
}

// speak synthesizes and plays an announcement. Announcements are
// best-effort: failures are logged, not fatal.
func (s *Session) speak(ctx context.Context, text string) {
	err := trace.WithSpan(ctx, "tts.speak", func(spanCtx context.Context) error {
		clip, err := s.speech.Synthesize(spanCtx, text)
		if err != nil {
			return err
		}
		return s.player.Play(spanCtx, clip.PCM, clip.SampleRate)
	}, oteltrace.WithAttributes(trace.Attr("tts.provider", s.speech.Name())))
	if err != nil {
		log.Printf("[game] announcement failed: %v", err)
	}
}

func (s *Session) humanColor() chess.Color {
	if s.cfg.HumanPlaysWhite {
		return chess.White
	}
	return chess.Black
}

// announceResult renders and speaks the final result.
func (s *Session) announceResult(ctx context.Context, endReason string) {
	var message string
	switch {
	case endReason == "resign":
		message = "You resigned. I win!"
	case endReason == "draw":
		message = "I'll accept a draw. Good game!"
	case s.game.Outcome() == chess.Draw:
		message = "The game ended in a draw. Well played!"
	case s.humanWon():
		message = "Congratulations, you win!"
	default:
		message = "I win! Better luck next time."
	}

	Render(s.out, s.game, message)
	s.speak(ctx, message)
}

func (s *Session) humanWon() bool {
	outcome := s.game.Outcome()
	if s.cfg.HumanPlaysWhite {
		return outcome == chess.WhiteWon
	}
	return outcome == chess.BlackWon
}
