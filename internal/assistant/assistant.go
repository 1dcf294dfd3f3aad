// Package assistant is the rule-based command processor behind the reference
// server. Each connection owns one Processor.
package assistant

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Intent names a recognised kind of command.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentFarewell     Intent = "farewell"
	IntentTime         Intent = "time"
	IntentDate         Intent = "date"
	IntentWeather      Intent = "weather"
	IntentSystemInfo   Intent = "system_info"
	IntentOpenApp      Intent = "open_app"
	IntentCapabilities Intent = "capabilities"
	IntentNameQuery    Intent = "name_query"
	IntentThanks       Intent = "thanks"
	IntentAffirmation  Intent = "affirmation"
	IntentNegation     Intent = "negation"
	IntentJoke         Intent = "joke"
	IntentCalculation  Intent = "calculation"
	IntentNone         Intent = ""
)

type rule struct {
	intent   Intent
	patterns []*regexp.Regexp
}

func compile(intent Intent, patterns ...string) rule {
	r := rule{intent: intent}
	for _, p := range patterns {
		r.patterns = append(r.patterns, regexp.MustCompile(p))
	}
	return r
}

// rules are tried in order against the lowercased input; the first hit wins.
var rules = []rule{
	compile(IntentGreeting,
		`^(hello|hi|hey|greetings|sup|yo)\b`,
		`good (morning|afternoon|evening)`,
		`how (are you|is it going)`,
		`what'?s up`,
	),
	compile(IntentFarewell,
		`(goodbye|bye|see you|farewell|later)`,
		`(exit|quit|close)`,
		`good night`,
		`catch you`,
	),
	compile(IntentTime,
		`what (is |'s )?the time`,
		`what time is it`,
		`current time`,
		`time (now|right now)`,
	),
	compile(IntentDate,
		`what (is |'s )?the date`,
		`today'?s date`,
		`what day is (it|today)`,
	),
	compile(IntentWeather,
		`(what'?s |how'?s |)the weather`,
		`weather (forecast|today|tomorrow|like)`,
		`(is it|will it) (rain|snow|sunny)`,
	),
	compile(IntentSystemInfo,
		`system (info|information|status|stats)`,
		`(cpu|memory|ram|disk) (usage|info|status)`,
		`how (is|'s) (my |the )?system`,
		`(check|show) (system|performance)`,
	),
	compile(IntentOpenApp, `^(open|launch|start|run) (.+)`),
	compile(IntentCapabilities,
		`what (can|do) you (do|know)`,
		`\b(help|commands|capabilities|features)\b`,
		`how (can|do) you (help|assist)`,
	),
	compile(IntentNameQuery,
		`(what'?s |who'?s |tell me )?your name`,
		`who are you`,
		`what are you`,
	),
	compile(IntentThanks,
		`^(thanks|thank you|thx|ty)\b`,
		`(appreciate|grateful)`,
	),
	compile(IntentAffirmation,
		`^(yes|yeah|yep|sure|okay|ok|alright)\b`,
		`sounds good`,
	),
	compile(IntentNegation, `^(no|nope|nah|not really)\b`),
	compile(IntentJoke,
		`(tell|make) (me )?(a )?joke`,
		`something funny`,
		`make me laugh`,
	),
	compile(IntentCalculation,
		`(calculate|compute) (.+)`,
		`\d+(\.\d+)?\s*[+\-*/]\s*\d+`,
		`what('?s| is) \d+`,
	),
}

var (
	openAppRe = regexp.MustCompile(`^(open|launch|start|run) (.+)`)
	calcRe    = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*([+\-*/])\s*(-?\d+(?:\.\d+)?)`)
)

// Match returns the intent for text, or IntentNone.
func Match(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, r := range rules {
		for _, p := range r.patterns {
			if p.MatchString(lower) {
				return r.intent
			}
		}
	}
	return IntentNone
}

const historyLimit = 20

type turn struct {
	user bool
	text string
}

// Processor answers commands for one conversation.
type Processor struct {
	userName string
	sys      SystemInfo
	now      func() time.Time
	log      zerolog.Logger

	mu         sync.Mutex
	history    []turn
	lastIntent Intent
	jokes      int
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithSystemInfo replaces the host statistics source.
func WithSystemInfo(s SystemInfo) Option {
	return func(p *Processor) { p.sys = s }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Processor) { p.log = l.With().Str("component", "assistant").Logger() }
}

// New returns a Processor addressing the user as userName.
func New(userName string, opts ...Option) *Processor {
	if userName == "" {
		userName = "User"
	}
	p := &Processor{
		userName: userName,
		sys:      HostInfo{},
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process returns the reply to one command.
func (p *Processor) Process(ctx context.Context, text string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.remember(true, text)
	intent := Match(text)
	p.log.Debug().Str("intent", string(intent)).Msg("processing command")

	var reply string
	if intent == IntentNone {
		reply = fallback(text)
	} else {
		reply = p.execute(ctx, intent, text)
		p.lastIntent = intent
	}
	p.remember(false, reply)
	return reply
}

func (p *Processor) remember(user bool, text string) {
	p.history = append(p.history, turn{user: user, text: text})
	if len(p.history) > historyLimit {
		p.history = p.history[len(p.history)-historyLimit:]
	}
}

func (p *Processor) execute(ctx context.Context, intent Intent, text string) string {
	switch intent {
	case IntentGreeting:
		return p.greeting()
	case IntentFarewell:
		return fmt.Sprintf("Goodbye, %s! Have a great day!", p.userName)
	case IntentTime:
		return "The current time is " + p.now().Format("03:04 PM")
	case IntentDate:
		return "Today is " + p.now().Format("Monday, January 02, 2006")
	case IntentWeather:
		return "I can't check the weather while offline. Please connect to the internet for weather updates."
	case IntentSystemInfo:
		return p.systemInfo(ctx)
	case IntentOpenApp:
		if m := openAppRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(text))); m != nil {
			return fmt.Sprintf("I'll try to open %s for you. (Feature coming soon)", strings.TrimSpace(m[2]))
		}
		return "Which application would you like to open?"
	case IntentCapabilities:
		return capabilities
	case IntentNameQuery:
		return "I'm YAAN - Your AI Assistant Network. I'm here to help you with various tasks and answer your questions."
	case IntentThanks:
		return "You're welcome!"
	case IntentAffirmation:
		if p.lastIntent != IntentNone {
			return "Great! What would you like to do next?"
		}
		return "Alright! How can I help you?"
	case IntentNegation:
		return "No problem. Is there anything else I can help you with?"
	case IntentJoke:
		j := jokes[p.jokes%len(jokes)]
		p.jokes++
		return j
	case IntentCalculation:
		return calculate(text)
	}
	return "I'm not sure how to help with that yet."
}

func (p *Processor) greeting() string {
	// The current command is already in history.
	start := max(len(p.history)-6, 0)
	hellos := 0
	for _, t := range p.history[start:] {
		if t.user && strings.Contains(strings.ToLower(t.text), "hello") {
			hellos++
		}
	}
	if hellos > 1 {
		return "Hello again! What else can I help you with?"
	}

	hour := p.now().Hour()
	switch {
	case hour < 12:
		return "Good morning! How can I help you today?"
	case hour < 18:
		return "Good afternoon! How can I help you today?"
	default:
		return "Good evening! How can I help you today?"
	}
}

func (p *Processor) systemInfo(ctx context.Context) string {
	st, err := p.sys.Stats(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("system info")
		return "Unable to retrieve system information."
	}
	const gb = 1 << 30
	return fmt.Sprintf("System Status:\n- OS: %s\n- CPU Usage: %.1f%%\n- Memory: %.1f%% used (%dGB / %dGB)\n- Disk: %.1f%% used (%dGB / %dGB)",
		st.OS,
		st.CPUPercent,
		st.MemPercent, st.MemUsed/gb, st.MemTotal/gb,
		st.DiskPercent, st.DiskUsed/gb, st.DiskTotal/gb,
	)
}

func calculate(text string) string {
	m := calcRe.FindStringSubmatch(text)
	if m == nil {
		return "I can help with simple calculations like '25 + 17' or '100 / 4'. Try asking me!"
	}
	a, err1 := strconv.ParseFloat(m[1], 64)
	b, err2 := strconv.ParseFloat(m[3], 64)
	if err1 != nil || err2 != nil {
		return "Sorry, I couldn't calculate that. Try a simpler expression like '10 + 5'."
	}

	var r float64
	switch m[2] {
	case "+":
		r = a + b
	case "-":
		r = a - b
	case "*":
		r = a * b
	case "/":
		if b == 0 {
			return "Cannot divide by zero!"
		}
		r = a / b
	}

	expr := fmt.Sprintf("%s %s %s", m[1], m[2], m[3])
	if r == float64(int64(r)) {
		return fmt.Sprintf("%s = %d", expr, int64(r))
	}
	return fmt.Sprintf("%s = %.2f", expr, r)
}

var questionPrefixes = []string{"what", "when", "where", "who", "how", "why", "can", "could", "would", "should"}

func fallback(text string) string {
	lower := strings.ToLower(text)
	containsAny := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny("love", "like", "favorite"):
		return "I appreciate the sentiment! I'm here to help you with tasks and information. What can I do for you?"
	case containsAny("how do you feel"):
		return "I'm functioning perfectly, thank you for asking! How can I assist you today?"
	case containsAny("create", "make"):
		return "I can help with various tasks! Try asking me about time, date, system info, calculations, or just chat. What would you like to do?"
	case containsAny("learn", "teach"):
		return "I'm continuously learning and improving! Right now I can help with time, dates, system monitoring, math, and conversation. Type 'help' to see all my capabilities."
	case containsAny("where", "location", "place"):
		return "I don't have access to location services yet. I can help with other things though - try asking about time, system info, or calculations!"
	case containsAny("why"):
		return "That's a great question! While I don't have that specific information, I can help you with time, dates, system info, and more. What would you like to know?"
	case containsAny("code", "program", "script"):
		return "I can help with technical questions! I know about system information, can do calculations, and provide helpful information. What do you need?"
	}

	if strings.Contains(text, "?") {
		return "I don't have that specific information yet, but I'm always learning! Try asking me about time, date, system status, or calculations."
	}
	for _, q := range questionPrefixes {
		if strings.HasPrefix(lower, q) {
			return "I don't have that specific information yet, but I'm always learning! Try asking me about time, date, system status, or calculations."
		}
	}
	return "I'm not quite sure what you mean. Could you rephrase that, or try asking me about time, system info, or calculations?"
}

var jokes = []string{
	"Why do programmers prefer dark mode? Because light attracts bugs! 🐛",
	"Why did the developer go broke? Because he used up all his cache! 💰",
	"What's a computer's favorite snack? Microchips! 🍪",
	"Why don't robots ever panic? Because they have nerves of steel! 🤖",
	"How do you comfort a JavaScript bug? You console it! 😄",
}

const capabilities = `I can assist you with:

- **Time & Date**: "What time is it?" or "What's today's date?"
- **System Info**: "How's my system?" or "Check CPU usage"
- **Math**: "Calculate 25 * 4" or simple arithmetic
- **Entertainment**: "Tell me a joke"
- **Conversation**: greetings, thanks, and small talk

Just speak naturally, and I'll do my best to understand and help!`
