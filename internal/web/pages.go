package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"eventsched/internal/eventlog"
	"eventsched/internal/models"
	"eventsched/internal/store"
)

type pageData struct {
	Message string
	Events  []models.Event
	Reverse bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	events, err := s.sched.Forward(r.Context())
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.render(w, http.StatusOK, pageData{Events: events})
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	events, err := s.sched.Reverse(r.Context())
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.render(w, http.StatusOK, pageData{Events: events, Reverse: true, Message: "Reverse order view"})
}

// handleAction runs the command named by the form's action field and
// re-renders the page with a status message.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, pageData{Message: "Invalid form: " + err.Error()})
		return
	}
	ctx := r.Context()
	form := func(key string) string { return strings.TrimSpace(r.PostForm.Get(key)) }

	var (
		msg    string
		found  *models.Event
		status = http.StatusOK
	)

	switch action := form("action"); action {
	case "insert":
		seats, err := formInt(form("seats"), "seats")
		if err != nil {
			s.badInput(w, err)
			return
		}
		id, err := s.sched.Insert(ctx, form("name"), form("date"), form("time"), seats)
		if err != nil {
			s.renderError(w, err)
			return
		}
		msg = fmt.Sprintf("Event added with ID %d", id)

	case "search":
		id, err := formInt(form("search_id"), "event id")
		if err != nil {
			s.badInput(w, err)
			return
		}
		e, err := s.sched.Search(ctx, id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			msg = "Event not found"
			status = http.StatusNotFound
		case err != nil:
			s.renderError(w, err)
			return
		default:
			found = &e
			msg = fmt.Sprintf("Event found: ID %d", e.ID)
		}

	case "modify":
		id, err := formInt(form("modify_id"), "event id")
		if err != nil {
			s.badInput(w, err)
			return
		}
		seats := 0
		if raw := form("modify_seats"); raw != "" {
			if seats, err = formInt(raw, "seats"); err != nil {
				s.badInput(w, err)
				return
			}
		}
		u := models.UpdateFromSentinels(form("modify_name"), form("modify_date"), form("modify_time"), seats)
		_, err = s.sched.Modify(ctx, id, u)
		switch {
		case errors.Is(err, store.ErrNotFound):
			msg = fmt.Sprintf("Event ID %d not found", id)
			status = http.StatusNotFound
		case err != nil:
			s.renderError(w, err)
			return
		default:
			msg = fmt.Sprintf("Event ID %d updated", id)
		}

	case "delete":
		id, err := formInt(form("delete_id"), "event id")
		if err != nil {
			s.badInput(w, err)
			return
		}
		err = s.sched.Delete(ctx, id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			msg = fmt.Sprintf("Event ID %d not found", id)
			status = http.StatusNotFound
		case err != nil:
			s.renderError(w, err)
			return
		default:
			msg = fmt.Sprintf("Event ID %d deleted", id)
		}

	case "generate":
		n, err := formInt(form("gen_count"), "count")
		if err != nil {
			s.badInput(w, err)
			return
		}
		ids, err := s.sched.Generate(ctx, n)
		if err != nil {
			s.renderError(w, err)
			return
		}
		msg = fmt.Sprintf("Generated %d random events", len(ids))

	default:
		s.render(w, http.StatusBadRequest, pageData{Message: fmt.Sprintf("Unknown action %q", action)})
		return
	}

	data := pageData{Message: msg}
	if found != nil {
		data.Events = []models.Event{*found}
	} else {
		events, err := s.sched.Forward(ctx)
		if err != nil {
			s.renderError(w, err)
			return
		}
		data.Events = events
	}
	s.render(w, status, data)
}

func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	events, err := s.sched.Forward(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if len(events) == 0 {
		http.Error(w, "No data", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := eventlog.WriteCSV(&buf, events); err != nil {
		s.logger.Error("Failed to encode CSV.", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "failed to encode csv")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=events.csv")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.logger.Error("Failed to render page.", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) badInput(w http.ResponseWriter, err error) {
	s.render(w, http.StatusBadRequest, pageData{Message: "Invalid input: " + err.Error()})
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrInvalidArgument) {
		s.badInput(w, err)
		return
	}
	s.logger.Error("Request failed.", "error", err)
	s.render(w, http.StatusInternalServerError, pageData{Message: "Something went wrong, see the server log."})
}

func formInt(raw, field string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", field)
	}
	return n, nil
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Event Scheduler</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
form { display: inline-block; margin: 0 1rem 1rem 0; padding: .5rem; border: 1px solid #ccc; vertical-align: top; }
table { border-collapse: collapse; margin-top: 1rem; }
th, td { border: 1px solid #ccc; padding: .25rem .75rem; }
.message { font-weight: bold; }
</style>
</head>
<body>
<h1>Event Scheduler</h1>
{{with .Message}}<p class="message">{{.}}</p>{{end}}

<form method="post" action="/">
<input type="hidden" name="action" value="insert">
<input name="name" placeholder="Name" required>
<input name="date" placeholder="DD/MM/YYYY" required>
<input name="time" placeholder="HH:MM" required>
<input name="seats" type="number" min="0" placeholder="Seats" required>
<button>Add</button>
</form>

<form method="post" action="/">
<input type="hidden" name="action" value="search">
<input name="search_id" type="number" placeholder="ID" required>
<button>Search</button>
</form>

<form method="post" action="/">
<input type="hidden" name="action" value="modify">
<input name="modify_id" type="number" placeholder="ID" required>
<input name="modify_name" placeholder="New name">
<input name="modify_date" placeholder="New date">
<input name="modify_time" placeholder="New time">
<input name="modify_seats" type="number" min="0" placeholder="New seats">
<button>Modify</button>
</form>

<form method="post" action="/">
<input type="hidden" name="action" value="delete">
<input name="delete_id" type="number" placeholder="ID" required>
<button>Delete</button>
</form>

<form method="post" action="/">
<input type="hidden" name="action" value="generate">
<input name="gen_count" type="number" min="1" placeholder="Count" required>
<button>Generate</button>
</form>

<p>
{{if .Reverse}}<a href="/">Forward order</a>{{else}}<a href="/reverse">Reverse order</a>{{end}}
| <a href="/download_csv">Download CSV</a>
</p>

{{if .Events}}
<table>
<tr><th>ID</th><th>Name</th><th>Date</th><th>Time</th><th>Seats</th></tr>
{{range .Events}}<tr><td>{{.ID}}</td><td>{{.Name}}</td><td>{{.Date}}</td><td>{{.Time}}</td><td>{{.Seats}}</td></tr>
{{end}}</table>
{{else}}
<p>No events.</p>
{{end}}
</body>
</html>
`
