// File: backend/internal/templates/templates.go

// Package templates renders outreach email subjects and bodies from Liquid
// templates keyed by email stage and voice. Bindings are plain maps so the
// caller decides which personalization facts a given level may expose.
package templates

import (
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// Key selects one template: the email stage plus the campaign's voice.
type Key struct {
	Type  string // initial, follow_up_1, follow_up_2, follow_up_3
	Style string // professional, casual, direct
}

// Bindings are the variables exposed to a template render.
type Bindings map[string]interface{}

// Engine parses and renders the built-in template set, caching parsed
// templates by key.
type Engine struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

func NewEngine() *Engine {
	e := &Engine{engine: liquid.NewEngine()}

	// Missing optional facts render as the fallback instead of failing.
	e.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		s := fmt.Sprintf("%v", value)
		if s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})
	e.engine.RegisterFilter("capitalize", func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + s[1:]
	})
	return e
}

// Render produces the subject and body for one email. Unknown styles fall
// back to professional; unknown types are an error.
func (e *Engine) Render(key Key, bindings Bindings) (subject, body string, err error) {
	tpl, ok := builtins[Key{Type: key.Type, Style: key.Style}]
	if !ok {
		tpl, ok = builtins[Key{Type: key.Type, Style: "professional"}]
	}
	if !ok {
		return "", "", fmt.Errorf("no template for email type '%s'", key.Type)
	}

	subject, err = e.render(key.Type+"/"+key.Style+"/subject", tpl.subject, bindings)
	if err != nil {
		return "", "", fmt.Errorf("subject render failed: %w", err)
	}
	body, err = e.render(key.Type+"/"+key.Style+"/body", tpl.body, bindings)
	if err != nil {
		return "", "", fmt.Errorf("body render failed: %w", err)
	}
	return subject, body, nil
}

func (e *Engine) render(cacheKey, source string, bindings Bindings) (string, error) {
	var tpl *liquid.Template
	if cached, ok := e.cache.Load(cacheKey); ok {
		tpl = cached.(*liquid.Template)
	} else {
		parsed, err := e.engine.ParseString(source)
		if err != nil {
			return "", err
		}
		e.cache.Store(cacheKey, parsed)
		tpl = parsed
	}
	out, err := tpl.Render(map[string]interface{}(bindings))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

type emailTemplate struct {
	subject string
	body    string
}

var builtins = map[Key]emailTemplate{
	{Type: "initial", Style: "professional"}: {
		subject: `Content partnership with {{ site_name | default: domain }}`,
		body: `Hi {{ contact_name | default: "there" }},

I came across {{ site_name | default: domain }}{% if recent_post_title %} and particularly enjoyed "{{ recent_post_title }}"{% endif %}. We publish practical material on {{ keyword }} and I believe a contribution could be a strong fit for your readers.

Would you be open to a guest piece? I can share a few topic ideas tailored to your audience{% if posting_frequency %} and your {{ posting_frequency }} publishing rhythm{% endif %}.

Best regards,
{{ from_name }}`,
	},
	{Type: "initial", Style: "casual"}: {
		subject: `Loved {{ site_name | default: domain }}{% if recent_post_title %} (especially your latest post){% endif %}`,
		body: `Hey {{ contact_name | default: "there" }},

{% if recent_post_title %}Just read "{{ recent_post_title }}" on {{ site_name | default: domain }} and it got me thinking.{% else %}Been following {{ site_name | default: domain }} for a bit.{% endif %} I write about {{ keyword }} and have an idea I think your readers would enjoy.

Up for a quick guest post pitch?

Cheers,
{{ from_name }}`,
	},
	{Type: "initial", Style: "direct"}: {
		subject: `Guest post proposal for {{ site_name | default: domain }}`,
		body: `Hi {{ contact_name | default: "there" }},

I'd like to contribute a guest post to {{ site_name | default: domain }} on {{ keyword }}. The piece would be original, written for your audience, and link to {{ target_url }} where relevant.

If you accept contributions, what are your requirements?

{{ from_name }}`,
	},
	{Type: "follow_up_1", Style: "professional"}: {
		subject: `Re: Content partnership with {{ site_name | default: domain }}`,
		body: `Hi {{ contact_name | default: "there" }},

Following up on my note from a few days ago about contributing to {{ site_name | default: domain }}. I understand inboxes fill up quickly.

If a guest piece on {{ keyword }} could work for you, I'd be glad to send over concrete topic ideas.

Best regards,
{{ from_name }}`,
	},
	{Type: "follow_up_1", Style: "casual"}: {
		subject: `Re: quick idea for {{ site_name | default: domain }}`,
		body: `Hey {{ contact_name | default: "there" }},

Just floating my earlier note back up. Still keen to put together something on {{ keyword }} for {{ site_name | default: domain }} if you're interested.

Cheers,
{{ from_name }}`,
	},
	{Type: "follow_up_1", Style: "direct"}: {
		subject: `Re: Guest post proposal for {{ site_name | default: domain }}`,
		body: `Hi {{ contact_name | default: "there" }},

Checking in on my guest post proposal for {{ site_name | default: domain }}. Happy to send the draft outline whenever you're ready.

{{ from_name }}`,
	},
	{Type: "follow_up_2", Style: "professional"}: {
		subject: `Following up: contribution for {{ site_name | default: domain }}`,
		body: `Hi {{ contact_name | default: "there" }},

I wanted to check in once more regarding a contribution on {{ keyword }}. If the timing isn't right, a quick note saying so is completely fine and I won't keep nudging.

Best regards,
{{ from_name }}`,
	},
	{Type: "follow_up_2", Style: "casual"}: {
		subject: `Re: still up for it?`,
		body: `Hey {{ contact_name | default: "there" }},

One more nudge on the {{ keyword }} piece for {{ site_name | default: domain }}. If it's a no, no hard feelings, just let me know.

Cheers,
{{ from_name }}`,
	},
	{Type: "follow_up_2", Style: "direct"}: {
		subject: `Second follow-up: {{ site_name | default: domain }}`,
		body: `Hi {{ contact_name | default: "there" }},

Second follow-up on my proposal. A one-line yes or no works for me.

{{ from_name }}`,
	},
	{Type: "follow_up_3", Style: "professional"}: {
		subject: `Closing the loop on {{ site_name | default: domain }}`,
		body: `Hi {{ contact_name | default: "there" }},

This is my last note on this. If a contribution on {{ keyword }} ever becomes interesting for {{ site_name | default: domain }}, my door stays open.

All the best,
{{ from_name }}`,
	},
	{Type: "follow_up_3", Style: "casual"}: {
		subject: `Last one, promise`,
		body: `Hey {{ contact_name | default: "there" }},

Last note from me on this. If you ever want a piece on {{ keyword }}, you know where to find me.

All the best,
{{ from_name }}`,
	},
	{Type: "follow_up_3", Style: "direct"}: {
		subject: `Final follow-up`,
		body: `Hi {{ contact_name | default: "there" }},

Final follow-up on my guest post proposal for {{ site_name | default: domain }}. I'll close this out unless I hear back.

{{ from_name }}`,
	},
}
