// Package game wires the endpoint detector, transcription and speech
// collaborators into a playable voice chess session.
package game

import (
	"fmt"
	"regexp"
	"strings"
)

var pieceNames = map[string]string{
	"K": "king",
	"Q": "queen",
	"R": "rook",
	"B": "bishop",
	"N": "knight",
	"P": "pawn",
}

var rankOrdinals = map[string]string{
	"1": "first", "2": "second", "3": "third", "4": "fourth",
	"5": "fifth", "6": "sixth", "7": "seventh", "8": "eighth",
}

var (
	castleRe     = regexp.MustCompile(`^(O|0)-(O|0)(-(O|0))?$`)
	enPassantRe  = regexp.MustCompile(`(?i)\s*\be\.?p\b\.?`)
	checkRe      = regexp.MustCompile(`(#|\+\+|\+)([!?]*)$`)
	annotationRe = regexp.MustCompile(`[!?]+$`)
	sanRe        = regexp.MustCompile(
		`^(?P<piece>[KQRBN])?` +
			`(?P<disambig>[a-h1-8]{0,2})` +
			`(?P<capture>x)?` +
			`(?P<dest>[a-h][1-8])` +
			`(?:=(?P<promo1>[QRBN])|(?P<promo2>[QRBN]))?$`)
	anySquareRe = regexp.MustCompile(`[a-h][1-8]`)
)

// sanParts is one SAN move broken into its components.
type sanParts struct {
	piece     string // "P" for pawn moves
	disambig  string
	capture   bool
	dest      string
	promo     string
	check     string // "", "check", "double", "mate"
	enPassant bool
	castle    string // "", "kingside", "queenside"
}

func parseSAN(san string) (sanParts, bool) {
	var p sanParts
	s := strings.TrimSpace(san)

	if enPassantRe.MatchString(s) {
		p.enPassant = true
		s = strings.TrimSpace(enPassantRe.ReplaceAllString(s, ""))
	}

	if m := checkRe.FindStringSubmatchIndex(s); m != nil {
		switch s[m[2]:m[3]] {
		case "#":
			p.check = "mate"
		case "++":
			p.check = "double"
		default:
			p.check = "check"
		}
		s = s[:m[2]]
	}
	s = strings.TrimSpace(annotationRe.ReplaceAllString(s, ""))

	if castleRe.MatchString(s) {
		if strings.Count(s, "-") == 2 {
			p.castle = "queenside"
		} else {
			p.castle = "kingside"
		}
		return p, true
	}

	m := sanRe.FindStringSubmatch(s)
	if m == nil {
		return p, false
	}
	get := func(name string) string {
		return m[sanRe.SubexpIndex(name)]
	}

	p.piece = get("piece")
	if p.piece == "" {
		p.piece = "P"
	}
	p.disambig = get("disambig")
	p.capture = get("capture") == "x"
	p.dest = get("dest")
	p.promo = get("promo1")
	if p.promo == "" {
		p.promo = get("promo2")
	}
	return p, true
}

// fromPhrase renders the disambiguation hint ("from the e-file", "from d2").
func (p sanParts) fromPhrase() string {
	d := p.disambig
	switch len(d) {
	case 1:
		if d[0] >= 'a' && d[0] <= 'h' {
			return fmt.Sprintf(" from the %s-file", d)
		}
		return fmt.Sprintf(" from the %s rank", rankOrdinals[d])
	case 2:
		return fmt.Sprintf(" from %s", d)
	}
	return ""
}

func withCheckSuffix(desc, check string) string {
	switch check {
	case "mate":
		return desc + ", checkmate."
	case "double":
		return desc + ", with double check."
	case "check":
		return desc + ", with check."
	}
	return desc + "."
}

// DescribeSANFirstPerson converts a SAN move into a first-person,
// future-tense sentence, e.g. "I will move my knight to f3." side names the
// king's landing square on castling ("white" or "black", may be empty).
func DescribeSANFirstPerson(san, side string) string {
	p, ok := parseSAN(san)
	if !ok {
		if sq := anySquareRe.FindString(san); sq != "" {
			return fmt.Sprintf("I will make a move that will land on %s.", sq)
		}
		return fmt.Sprintf("I will not be able to parse the move %q.", san)
	}

	if p.castle != "" {
		file := "g"
		if p.castle == "queenside" {
			file = "c"
		}
		desc := fmt.Sprintf("I will castle %s", p.castle)
		switch strings.ToLower(side) {
		case "white", "w":
			desc += fmt.Sprintf(" to %s1", file)
		case "black", "b":
			desc += fmt.Sprintf(" to %s8", file)
		}
		return withCheckSuffix(desc, p.check)
	}

	name := pieceNames[p.piece]
	var base string
	switch {
	case p.capture && p.enPassant && p.piece == "P":
		base = fmt.Sprintf("I will capture en passant on %s with my pawn%s", p.dest, p.fromPhrase())
	case p.capture:
		base = fmt.Sprintf("I will capture on %s with my %s%s", p.dest, name, p.fromPhrase())
	case p.piece == "P":
		base = fmt.Sprintf("I will advance my pawn%s to %s", p.fromPhrase(), p.dest)
	default:
		base = fmt.Sprintf("I will move my %s%s to %s", name, p.fromPhrase(), p.dest)
	}

	if p.promo != "" {
		base += fmt.Sprintf(", and I will promote to a %s", pieceNames[p.promo])
	}
	return withCheckSuffix(base, p.check)
}

// DescribeSAN converts a SAN move into a neutral phrase, e.g.
// "knight to f3" or "a capture on d5 with a pawn from the e-file". Used
// when reading an unrecognized or illegal move back to the player.
func DescribeSAN(san string) string {
	p, ok := parseSAN(san)
	if !ok {
		if sq := anySquareRe.FindString(san); sq != "" {
			return fmt.Sprintf("a move landing on %s", sq)
		}
		return fmt.Sprintf("the move %q", san)
	}

	if p.castle != "" {
		return "castling " + p.castle
	}

	name := pieceNames[p.piece]
	var base string
	switch {
	case p.capture && p.enPassant && p.piece == "P":
		base = fmt.Sprintf("an en passant capture on %s", p.dest)
	case p.capture:
		base = fmt.Sprintf("a capture on %s with a %s%s", p.dest, name, p.fromPhrase())
	case p.piece == "P":
		base = fmt.Sprintf("a pawn%s to %s", p.fromPhrase(), p.dest)
	default:
		base = fmt.Sprintf("a %s%s to %s", name, p.fromPhrase(), p.dest)
	}

	if p.promo != "" {
		base += fmt.Sprintf(" promoting to a %s", pieceNames[p.promo])
	}
	return base
}
