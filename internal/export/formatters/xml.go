package formatters

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// XMLFormatter formats documents as XML.
type XMLFormatter struct{}

// NewXMLFormatter creates a new XML formatter.
func NewXMLFormatter() *XMLFormatter {
	return &XMLFormatter{}
}

// Name returns the formatter name.
func (f *XMLFormatter) Name() string {
	return "xml"
}

// ContentType returns the MIME content type.
func (f *XMLFormatter) ContentType() string {
	return "application/xml"
}

// FileExtension returns the typical file extension.
func (f *XMLFormatter) FileExtension() string {
	return ".xml"
}

// xmlDocument is the XML representation of a job document.
type xmlDocument struct {
	XMLName    xml.Name `xml:"batch-jobs"`
	Version    int      `xml:"version,attr"`
	ExportedAt string   `xml:"exported-at,attr"`
	Jobs       []xmlJob `xml:"job"`
}

type xmlJob struct {
	ID              string   `xml:"id,attr"`
	JobName         string   `xml:"job-name"`
	StartTime       string   `xml:"start-time"`
	EndTime         string   `xml:"end-time,omitempty"`
	DurationSeconds *float64 `xml:"duration-seconds,omitempty"`
	Status          string   `xml:"status"`
}

// Format converts the document to XML.
func (f *XMLFormatter) Format(doc *Document) ([]byte, error) {
	xd := xmlDocument{
		Version:    doc.Version,
		ExportedAt: formatTime(doc.ExportedAt),
	}

	for _, j := range doc.Jobs {
		xd.Jobs = append(xd.Jobs, xmlJob{
			ID:              j.ID,
			JobName:         j.Name,
			StartTime:       formatTime(j.StartTime),
			EndTime:         formatOptionalTime(j.EndTime),
			DurationSeconds: j.DurationSeconds(),
			Status:          j.Status,
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(xd); err != nil {
		return nil, fmt.Errorf("failed to encode XML; %w", err)
	}
	buf.WriteString("\n")

	return buf.Bytes(), nil
}
