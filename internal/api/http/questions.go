package http

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-qbank/internal/exam"
)

func CreateQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.Question
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		out, err := store.CreateQuestions(r.Context(), []exam.Question{in})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out[0])
	}
}

// BulkCreateQuestionsHandler accepts a JSON array body, or a multipart file= holding
// a JSON array or CSV. A subject_id form value fills rows that carry none.
// The batch is stored whole or not at all.
func BulkCreateQuestionsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var rows []exam.Question
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				writeError(w, r, badRequest("file required"))
				return
			}
			defer f.Close()
			var defSubject int64
			if v := r.FormValue("subject_id"); v != "" {
				if defSubject, err = strconv.ParseInt(v, 10, 64); err != nil {
					writeError(w, r, badRequest("invalid subject_id"))
					return
				}
			}
			if rows, err = readQuestionFile(f, defSubject); err != nil {
				writeError(w, r, err)
				return
			}
		} else if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			writeError(w, r, badRequest("expected JSON array or multipart file"))
			return
		}
		if len(rows) == 0 {
			writeJSON(w, http.StatusOK, map[string]any{"created": 0, "questions": []exam.Question{}})
			return
		}
		out, err := store.CreateQuestions(r.Context(), rows)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"created": len(out), "questions": out})
	}
}

// readQuestionFile sniffs JSON vs CSV by the first non-space byte.
func readQuestionFile(f io.Reader, defSubject int64) ([]exam.Question, error) {
	br := bufio.NewReader(f)
	for {
		b, err := br.Peek(1)
		if err != nil {
			return nil, badRequest("empty file")
		}
		if b[0] == ' ' || b[0] == '\t' || b[0] == '\r' || b[0] == '\n' {
			_, _ = br.ReadByte()
			continue
		}
		if b[0] == '[' {
			var rows []exam.Question
			if err := json.NewDecoder(br).Decode(&rows); err != nil {
				return nil, badRequest("bad json: " + err.Error())
			}
			fillSubject(rows, defSubject)
			return rows, nil
		}
		rows, err := parseQuestionCSV(br)
		if err != nil {
			return nil, badRequest("bad csv: " + err.Error())
		}
		fillSubject(rows, defSubject)
		return rows, nil
	}
}

func fillSubject(rows []exam.Question, id int64) {
	for i := range rows {
		if rows[i].SubjectID == 0 {
			rows[i].SubjectID = id
		}
	}
}

// parseQuestionCSV reads rows with the header
// question,answer_a,answer_b,answer_c,answer_d,correct_answer[,subject_id].
func parseQuestionCSV(r io.Reader) ([]exam.Question, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	required := []string{"question", "answer_a", "answer_b", "answer_c", "answer_d", "correct_answer"}
	for _, k := range required {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	var rows []exam.Question
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		q := exam.Question{
			Text:          rec[idx["question"]],
			AnswerA:       rec[idx["answer_a"]],
			AnswerB:       rec[idx["answer_b"]],
			AnswerC:       rec[idx["answer_c"]],
			AnswerD:       rec[idx["answer_d"]],
			CorrectAnswer: strings.TrimSpace(rec[idx["correct_answer"]]),
		}
		if i, ok := idx["subject_id"]; ok && strings.TrimSpace(rec[i]) != "" {
			if q.SubjectID, err = strconv.ParseInt(strings.TrimSpace(rec[i]), 10, 64); err != nil {
				return nil, fmt.Errorf("line %d: invalid subject_id %q", line, rec[i])
			}
		}
		rows = append(rows, q)
	}
	return rows, nil
}

// ListQuestionsHandler lists the bank, optionally filtered by ?subject_id=.
func ListQuestionsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			list []exam.Question
			err  error
		)
		if v := r.URL.Query().Get("subject_id"); v != "" {
			sid, perr := strconv.ParseInt(v, 10, 64)
			if perr != nil {
				writeError(w, r, badRequest("invalid subject_id"))
				return
			}
			list, err = store.QuestionsBySubject(r.Context(), sid)
		} else {
			list, err = store.ListQuestions(r.Context())
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		if list == nil {
			list = []exam.Question{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		q, err := store.GetQuestion(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func UpdateQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var p exam.QuestionPatch
		if err := decodeJSON(w, r, &p); err != nil {
			writeError(w, r, err)
			return
		}
		q, err := store.UpdateQuestion(r.Context(), id, p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func DeleteQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := store.DeleteQuestion(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
