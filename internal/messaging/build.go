package messaging

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"whatsapp-console/internal/models"
	"whatsapp-console/internal/whatsapp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(err)
		}
	}
}

// Interactive message limits enforced by the Cloud API.
const (
	maxButtons     = 3
	maxButtonTitle = 20
	maxRowTitle    = 24
)

// validateCustom runs the binding tags on req, then the rules that depend on its kind.
func validateCustom(req *CustomRequest) error {
	req.Number = strings.TrimSpace(req.Number)
	if err := binding.Validator.ValidateStruct(req); err != nil {
		return invalid("%v", err)
	}
	if req.Kind == "" {
		req.Kind = models.KindText
	}

	switch {
	case req.Kind == models.KindText:
		if strings.TrimSpace(req.Message) == "" {
			return invalid("message is required for text messages")
		}
	case req.Kind.IsMedia():
		if req.File == nil || (req.File.Data == "" && req.File.URL == "") {
			return invalid("%s messages need a file or url", req.Kind)
		}
	case req.Kind == models.KindPoll:
		if req.Poll == nil {
			return invalid("poll messages need a poll")
		}
	case req.Kind == models.KindEvent:
		if req.Event == nil {
			return invalid("event messages need an event")
		}
	case req.Kind == models.KindContact:
		if req.Contact == nil {
			return invalid("contact messages need a contact")
		}
	default:
		return invalid("unsupported message type %q", req.Kind)
	}
	return nil
}

func buildOutbound(req CustomRequest, mediaURL string) (whatsapp.GenericMessage, error) {
	msg := whatsapp.NewMessage(req.Number, string(req.Kind))

	switch {
	case req.Kind == models.KindText:
		msg.Text = &whatsapp.TextObj{Body: req.Message, PreviewURL: strings.Contains(req.Message, "http")}

	case req.Kind.IsMedia():
		media := &whatsapp.MediaObj{Link: mediaURL}
		switch req.Kind {
		case models.KindImage:
			media.Caption = req.Message
			msg.Image = media
		case models.KindVideo:
			media.Caption = req.Message
			msg.Video = media
		case models.KindDocument:
			media.Caption = req.Message
			media.Filename = req.File.Name
			msg.Document = media
		case models.KindAudio:
			msg.Audio = media
		case models.KindSticker:
			msg.Sticker = media
		}

	case req.Kind == models.KindPoll:
		msg.Type = "interactive"
		msg.Interactive = pollInteractive(req.Poll)

	case req.Kind == models.KindEvent:
		msg.Type = "text"
		msg.Text = &whatsapp.TextObj{Body: eventText(req.Event)}

	case req.Kind == models.KindContact:
		msg.Type = "contacts"
		msg.Contacts = []whatsapp.ContactObj{contactObj(req.Contact)}

	default:
		return msg, invalid("unsupported message type %q", req.Kind)
	}
	return msg, nil
}

// pollInteractive renders a poll as reply buttons, or as a list when it has more options than buttons allow.
func pollInteractive(p *models.Poll) *whatsapp.InteractiveObj {
	in := &whatsapp.InteractiveObj{
		Header: &whatsapp.HeaderObj{Type: "text", Text: "Poll"},
		Body:   whatsapp.BodyObj{Text: p.Question},
	}
	if p.MultipleAnswers {
		in.Footer = &whatsapp.FooterObj{Text: "Reply once per option you choose"}
	}

	if len(p.Options) <= maxButtons {
		in.Type = "button"
		for i, opt := range p.Options {
			in.Action.Buttons = append(in.Action.Buttons, whatsapp.ButtonObj{
				Type:  "reply",
				Reply: whatsapp.ReplyObj{ID: optionID(i), Title: truncate(opt, maxButtonTitle)},
			})
		}
		return in
	}

	in.Type = "list"
	in.Action.Button = "Vote"
	section := whatsapp.SectionObj{Title: "Options"}
	for i, opt := range p.Options {
		row := whatsapp.RowObj{ID: optionID(i), Title: truncate(opt, maxRowTitle)}
		if utf8.RuneCountInString(opt) > maxRowTitle {
			row.Description = opt
		}
		section.Rows = append(section.Rows, row)
	}
	in.Action.Sections = []whatsapp.SectionObj{section}
	return in
}

func optionID(i int) string {
	return fmt.Sprintf("poll_option_%d", i)
}

func eventText(e *models.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*", e.Name)
	if e.Description != "" {
		fmt.Fprintf(&b, "\n%s", e.Description)
	}
	if when := strings.TrimSpace(e.StartDate + " " + e.StartTime); when != "" {
		fmt.Fprintf(&b, "\nWhen: %s", when)
	}
	if e.Location != "" {
		fmt.Fprintf(&b, "\nWhere: %s", e.Location)
	}
	return b.String()
}

func contactObj(c *models.ContactCard) whatsapp.ContactObj {
	first, _, _ := strings.Cut(c.Name, " ")
	obj := whatsapp.ContactObj{
		Name:   whatsapp.ContactName{FormattedName: c.Name, FirstName: first},
		Phones: []whatsapp.ContactPhone{{Phone: c.Phone, Type: "CELL"}},
	}
	if c.Info != "" {
		obj.Org = &whatsapp.ContactOrg{Title: c.Info}
	}
	return obj
}

// buildRecord is the stored form of a custom send. Status and provider id are set after the send.
func buildRecord(req CustomRequest, mediaURL string) *models.Message {
	record := &models.Message{
		From:      SystemSender,
		To:        req.Number,
		Direction: models.DirectionOutgoing,
		Kind:      req.Kind,
		Text:      req.Message,
	}

	switch {
	case req.Kind.IsMedia():
		record.Media = &models.MediaInfo{
			FileName: req.File.Name,
			FileSize: humanSize(req.File.Size),
			MimeType: req.File.MimeType,
			URL:      mediaURL,
			Caption:  req.Message,
		}
	case req.Kind == models.KindPoll:
		poll := *req.Poll
		poll.Votes = make([]int, len(poll.Options))
		poll.UserVotes = nil
		record.Poll = &poll
		record.Text = poll.Question
	case req.Kind == models.KindEvent:
		event := *req.Event
		if event.Creator == "" {
			event.Creator = SystemSender
		}
		record.Event = &event
		record.Text = eventText(&event)
	case req.Kind == models.KindContact:
		card := *req.Contact
		record.Contact = &card
		record.Text = card.Name
	}
	return record
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

func humanSize(n int64) string {
	if n <= 0 {
		return ""
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
