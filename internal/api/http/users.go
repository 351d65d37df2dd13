package http

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	auth "github.com/mind-engage/mindengage-qbank/internal/auth/middleware"
)

// BulkUpsertUsersHandler accepts a multipart file= (CSV or JSON) or a raw JSON array.
func BulkUpsertUsersHandler(users auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var rows []auth.UserInput
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				writeError(w, r, badRequest("file required"))
				return
			}
			defer f.Close()
			br := bufio.NewReader(f)
			first, err := br.Peek(1)
			if err != nil {
				writeError(w, r, badRequest("empty file"))
				return
			}
			if first[0] == '[' {
				if err := json.NewDecoder(br).Decode(&rows); err != nil {
					writeError(w, r, badRequest("bad json"))
					return
				}
			} else if rows, err = parseUserCSV(br); err != nil {
				writeError(w, r, badRequest("bad csv: "+err.Error()))
				return
			}
		} else if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			writeError(w, r, badRequest("expected JSON array or multipart file"))
			return
		}
		if len(rows) == 0 {
			writeJSON(w, http.StatusOK, map[string]any{"inserted": 0, "updated": 0})
			return
		}
		ins, upd, err := users.Upsert(r.Context(), rows)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"inserted": ins, "updated": upd})
	}
}

func ListUsersHandler(users auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.List(r.Context(), r.URL.Query().Get("role"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /users/change-password {"old_password","new_password"} for the caller.
func ChangePasswordHandler(users auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := auth.ChangePassword(r.Context(), users, userID, req.OldPassword, req.NewPassword); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// parseUserCSV reads rows with the header username,role[,id][,password].
func parseUserCSV(r io.Reader) ([]auth.UserInput, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"username", "role"} {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	var rows []auth.UserInput
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := auth.UserInput{
			Username: rec[idx["username"]],
			Role:     rec[idx["role"]],
		}
		if i, ok := idx["id"]; ok {
			row.ID = rec[i]
		}
		if i, ok := idx["password"]; ok {
			row.Password = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
