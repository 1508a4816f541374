// Package i18n renders the user-facing strings of the CLI and the
// terminal UI from embedded go-i18n catalogs.
package i18n

import (
	"embed"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

// Message ids.
const (
	ActionRegister           = "action_register"
	ActionCancelRegistration = "action_cancel_registration"
	ActionSchedule           = "action_schedule"
	ActionEdit               = "action_edit"
	ActionCancelEvent        = "action_cancel_event"
	ConfirmCancelReg         = "confirm_cancel_registration"
	ConfirmCancelEvent       = "confirm_cancel_event"
	ConfirmSchedule          = "confirm_schedule"
	ConfirmHint              = "confirm_hint"
	StatusLabel              = "status_label"
	RegistrationLabel        = "registration_label"
	Participants             = "participants"
	ParticipantsUnlimited    = "participants_unlimited"
	PriceFree                = "price_free"
	NoEvents                 = "no_events"
	Searching                = "searching"
	SearchPrompt             = "search_prompt"
	Loading                  = "loading"
	SignedInAs               = "signed_in_as"
	NotSignedIn              = "not_signed_in"
	OAuthOpenBrowser         = "oauth_open_browser"
	OAuthWaiting             = "oauth_waiting"
	Cancelled                = "cancelled"
	SessionEnded             = "session_ended"
	HelpBrowse               = "help_browse"
	HelpDetail               = "help_detail"
)

// Catalog localizes message ids for one locale, falling back to English.
type Catalog struct {
	tag       language.Tag
	localizer *i18n.Localizer
	logger    *slog.Logger
}

// New loads the embedded catalogs for locale, e.g. "fr" or "en-GB".
func New(locale string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	for _, file := range []string{"active.en.toml", "active.fr.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			logger.Warn("i18n_load_failed", "file", file, "error", err.Error())
		}
	}
	return &Catalog{
		tag:       tag,
		localizer: i18n.NewLocalizer(bundle, tag.String(), language.English.String()),
		logger:    logger,
	}
}

// Tag is the requested language.
func (c *Catalog) Tag() language.Tag {
	return c.tag
}

// T renders id with data. Unknown ids render as the id itself.
func (c *Catalog) T(id string, data map[string]any) string {
	if id == "" {
		return ""
	}
	msg, err := c.localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		c.logger.Debug("i18n_missing", "id", id, "locale", c.tag.String(), "error", err.Error())
		return id
	}
	return msg
}

// S renders id without template data.
func (c *Catalog) S(id string) string {
	return c.T(id, nil)
}

// Count renders a message with plural forms.
func (c *Catalog) Count(id string, n int, data map[string]any) string {
	if data == nil {
		data = map[string]any{}
	}
	data["Count"] = n
	msg, err := c.localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data, PluralCount: n})
	if err != nil {
		c.logger.Debug("i18n_missing", "id", id, "locale", c.tag.String(), "error", err.Error())
		return id
	}
	return msg
}
