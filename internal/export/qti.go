package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/mind-engage/mindengage-qbank/internal/exam"
)

const qtiNS = "http://www.imsglobal.org/xsd/imsqti_v2p1"

// BuildQTIPackage writes a zip with imsmanifest.xml and one QTI 2.1 single-choice
// item per question, in the order given.
func BuildQTIPackage(examName, code string, qs []exam.VariantQuestion) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	mf := imsManifest{
		Identifier: "MANIFEST-" + code,
		Xmlns:      "http://www.imsglobal.org/xsd/imscp_v1p1",
		Title:      examName,
	}
	for i, q := range qs {
		id := itemID(code, i+1, q.QuestionID)
		name := id + ".xml"
		mf.Resources = append(mf.Resources, imsResource{
			Identifier: id,
			Type:       "imsqti_item_xmlv2p1",
			Href:       name,
			Files:      []imsFile{{Href: name}},
		})
		body, err := itemXML(id, i+1, q)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", id, err)
		}
		if err := writeEntry(zw, name, body); err != nil {
			return nil, err
		}
	}

	b, err := xml.MarshalIndent(mf, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeEntry(zw, "imsmanifest.xml", b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func itemID(code string, order int, questionID int64) string {
	if code == "" {
		code = "ALL"
	}
	return fmt.Sprintf("%s-Q%03d-%d", code, order, questionID)
}

func writeEntry(zw *zip.Writer, name string, body []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// --- manifest ---
type imsManifest struct {
	XMLName    xml.Name      `xml:"manifest"`
	Identifier string        `xml:"identifier,attr"`
	Xmlns      string        `xml:"xmlns,attr,omitempty"`
	Title      string        `xml:"metadata>title,omitempty"`
	Resources  []imsResource `xml:"resources>resource"`
}
type imsResource struct {
	Identifier string    `xml:"identifier,attr"`
	Type       string    `xml:"type,attr"`
	Href       string    `xml:"href,attr"`
	Files      []imsFile `xml:"file"`
}
type imsFile struct {
	Href string `xml:"href,attr"`
}

// --- item ---
type assessmentItem struct {
	XMLName    xml.Name     `xml:"assessmentItem"`
	Xmlns      string       `xml:"xmlns,attr"`
	Identifier string       `xml:"identifier,attr"`
	Title      string       `xml:"title,attr"`
	Adaptive   bool         `xml:"adaptive,attr"`
	TimeDep    bool         `xml:"timeDependent,attr"`
	Response   responseDecl `xml:"responseDeclaration"`
	Body       itemBody     `xml:"itemBody"`
}
type responseDecl struct {
	Identifier  string   `xml:"identifier,attr"`
	Cardinality string   `xml:"cardinality,attr"`
	BaseType    string   `xml:"baseType,attr"`
	Correct     []string `xml:"correctResponse>value"`
}
type itemBody struct {
	Prompt      string            `xml:"p"`
	Interaction choiceInteraction `xml:"choiceInteraction"`
}
type choiceInteraction struct {
	ResponseIdentifier string         `xml:"responseIdentifier,attr"`
	Shuffle            bool           `xml:"shuffle,attr"`
	MaxChoices         int            `xml:"maxChoices,attr"`
	Choices            []simpleChoice `xml:"simpleChoice"`
}
type simpleChoice struct {
	Identifier string `xml:"identifier,attr"`
	Text       string `xml:",chardata"`
}

func itemXML(id string, order int, q exam.VariantQuestion) ([]byte, error) {
	if exam.LetterIndex(q.CorrectAnswer) < 0 {
		return nil, &exam.MalformedQuestionError{QuestionID: q.QuestionID, Letter: q.CorrectAnswer}
	}
	it := assessmentItem{
		Xmlns:      qtiNS,
		Identifier: id,
		Title:      fmt.Sprintf("Question %d", order),
		Response: responseDecl{
			Identifier:  "RESPONSE",
			Cardinality: "single",
			BaseType:    "identifier",
			Correct:     []string{exam.NormalizeLetter(q.CorrectAnswer)},
		},
		Body: itemBody{
			Prompt: q.Text,
			// order is fixed by the variant, so delivery must not reshuffle
			Interaction: choiceInteraction{ResponseIdentifier: "RESPONSE", MaxChoices: 1},
		},
	}
	for i, a := range q.Answers() {
		it.Body.Interaction.Choices = append(it.Body.Interaction.Choices,
			simpleChoice{Identifier: exam.Letters[i], Text: a})
	}
	return xml.MarshalIndent(it, "", "  ")
}
