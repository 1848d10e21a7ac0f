// Package regex holds the utterance templates shared by the response
// generators. Every template matches the whole utterance.
package regex

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	optPre  = `(?:.*? |)`
	optPost = `(?: .*?|)`
)

// Template is a named set of alternatives anchored at both ends.
type Template struct {
	Name     string
	patterns []*regexp.Regexp
}

func newTemplate(name string, alternatives ...string) *Template {
	t := &Template{Name: name}
	for _, a := range alternatives {
		t.patterns = append(t.patterns, regexp.MustCompile(`^`+a+`$`))
	}
	return t
}

// Matches reports whether any alternative matches the normalized utterance.
func (t *Template) Matches(utterance string) bool {
	_, ok := t.Execute(utterance)
	return ok
}

// Execute returns the named groups of the first matching alternative.
func (t *Template) Execute(utterance string) (map[string]string, bool) {
	u := Normalize(utterance)
	for _, re := range t.patterns {
		m := re.FindStringSubmatch(u)
		if m == nil {
			continue
		}
		slots := map[string]string{}
		for i, name := range re.SubexpNames() {
			if name != "" && m[i] != "" {
				slots[name] = strings.TrimSpace(m[i])
			}
		}
		return slots, true
	}
	return nil, false
}

// stopPre and stopPost bound what may surround a bare stop phrase, so that
// "stop" inside a longer sentence is not read as a request.
const (
	stopPre  = `(?:(?:ok|okay|oh|well|so|um|alexa|please|let's|let us) )*(?:(?:could|can|will|would) (?:you|we) (?:please )?)?`
	stopPost = `(?: (?:please|alexa|now|then))*`
)

var thisThing = `(?:this|that|it|this topic|that topic|the topic|this subject|the subject|them|those|these)`

// TopicSwitchTemplate covers requests to drop the current topic.
var TopicSwitchTemplate = newTemplate("topic_switch",
	stopPre+`(?:stop|stop it|stop that|nevermind|never mind|forget it|forget about it)`+stopPost,
	stopPre+`(?:stop talking|quit talking|stop asking|enough talking) about `+thisThing+stopPost,
	optPre+`(?:i don't|i do not|i don't really|i really don't) (?:want|wanna|like) to (?:talk|chat|hear) about `+thisThing+optPost,
	optPre+`(?:change|switch) (?:the )?(?:subject|topic|topics)`+optPost,
	optPre+`(?:talk|chat) about (?:something|anything) else`+optPost,
	optPre+`(?:something else|next topic|new topic|enough about `+thisThing+`)`+optPost,
)

// NavigationTemplate captures an explicit request for a topic.
var NavigationTemplate = newTemplate("navigation",
	optPre+`(?:let's|lets|let us|can we|could we|i want to|i wanna|i'd like to|i would like to) (?:talk|chat) about (?P<topic>.+?)`,
	optPre+`(?:tell me|talk to me) about (?P<topic>.+?)`,
	`(?:what do you think|how do you feel|what do you know) about (?P<topic>.+?)`,
	`(?:talk|chat) about (?P<topic>.+?)`,
)

// EndConversationTemplate covers the user leaving the conversation.
var EndConversationTemplate = newTemplate("end_conversation",
	optPre+`(?:goodbye|good bye|bye|bye bye|good night)`+optPost,
	optPre+`(?:i have to|i've got to|i gotta|i need to|i must) (?:go|leave|run)`+optPost,
	optPre+`(?:stop|quit|end|exit) (?:the )?(?:conversation|chat|chatting|this conversation)`+optPost,
	optPre+`(?:i want to|i'd like to|i wanna) (?:stop|quit) (?:talking|chatting)`+optPost,
	optPre+`(?:turn off|shut up|leave me alone)`+optPost,
)

var YesTemplate = newTemplate("yes",
	optPre+`(?:yes|yeah|yep|yup|sure|of course|definitely|absolutely|certainly|i do|i did|i am|ok|okay|uh huh|sounds good)`+optPost,
)

var NoTemplate = newTemplate("no",
	optPre+`(?:no|nope|nah|not really|not at all|never|i don't|i do not|i didn't|no thanks|no thank you)`+optPost,
)

var DontKnowTemplate = newTemplate("dont_know",
	optPre+`(?:i don't know|i do not know|i dunno|dunno|not sure|i'm not sure|i am not sure|no idea|i have no idea|i can't decide|hard to say|i can't think of any)`+optPost,
)

var QuestionTemplate = newTemplate("question",
	`(?:what|why|how|who|where|when|which|whose)(?: .*|'s .*|)`,
	`(?:do|does|did|are|is|can|could|have|has|would|will|should) (?:you|i|we|they|it|he|she)(?: .*|)`,
)

// MyNameIsTemplate captures a name the user introduces themselves with.
var MyNameIsTemplate = newTemplate("my_name_is",
	optPre+`(?:my name is|my name's|i'm called|call me|you can call me|this is|it's|i am|i'm) (?P<name>\pL[\pL'-]*)`+optPost,
)

// DoesNotWantToSayNameTemplate covers refusals to give a name.
var DoesNotWantToSayNameTemplate = newTemplate("refuse_name",
	optPre+`(?:i don't want to|i do not want to|i'd rather not|i would rather not|i won't|i will not) (?:tell|say|give|share)`+optPost,
	optPre+`(?:none of your business|not telling|it's a secret|no thanks|no thank you)`+optPost,
	`(?:no|nope|nah)`,
)

var whitespace = regexp.MustCompile(`\s+`)

// Normalize lower-cases, trims and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespace.ReplaceAllString(s, " ")
}

// NormalizeUtterance makes typed text look like speech recognizer output.
// Punctuation other than periods and apostrophes is dropped, letters are
// lower-cased and runs of whitespace collapse to one space.
func NormalizeUtterance(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '.' || r == '\'':
			return r
		case r == '’':
			return '\''
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			return ' '
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(cleaned), " ")
}
