package domain

import "time"

// Report represents a complete analysis report
type Report struct {
	Title       string
	Period      TimePeriod
	Sections    []ReportSection
	TotalAmount float64
	Currency    string
}

// TimePeriod represents a time range for the report
type TimePeriod struct {
	Start    time.Time
	End      time.Time
	Duration int // in days
}

// ReportSection represents a logical section in the report
type ReportSection struct {
	Title   string
	Summary map[string]interface{}
	Details []ReportDetail
}

// ReportDetail represents detailed information within a section
type ReportDetail struct {
	Name        string
	Value       interface{}
	Unit        string
	Description string
}

// Insights are the headline figures printed at the top of the PDF.
type Insights struct {
	TotalSales   float64
	TotalProfit  float64
	BestCategory string
	BestRegion   string
	TopProduct   string
}

// Document is a generated, downloadable report artifact.
type Document struct {
	FileName    string
	MimeType    string
	Content     []byte
	Pages       int
	GeneratedAt time.Time
	Insights    Insights
	Charts      []string // scratch image names, in layout order
}

// Result bundles everything one report generation produced.
type Result struct {
	Analysis *Analysis
	Insights Insights
	Document *Document
}
