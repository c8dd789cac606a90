package outcome

import (
	"encoding/json"
	"fmt"
)

type Kind int

const (
	Success Kind = iota
	CredentialExhausted
	URLRejected
	Transient
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case CredentialExhausted:
		return "credential_exhausted"
	case URLRejected:
		return "url_rejected"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one submission attempt. Exactly one of
// the four kinds applies; Code/Status/Message are only meaningful for error
// kinds, NotifiedURL/NotifyTime only for Success.
type Outcome struct {
	Kind        Kind
	Code        int
	Status      string
	Message     string
	NotifiedURL string
	NotifyTime  string
}

// Reason renders the ledger-facing error description.
func (o Outcome) Reason() string {
	return fmt.Sprintf("code=%d, status=%s", o.Code, o.Status)
}

type apiError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type latestUpdate struct {
	URL        string `json:"url"`
	Type       string `json:"type"`
	NotifyTime string `json:"notifyTime"`
}

type notificationMetadata struct {
	URL          string        `json:"url"`
	LatestUpdate *latestUpdate `json:"latestUpdate"`
}

type apiResponse struct {
	Error    *apiError             `json:"error"`
	Metadata *notificationMetadata `json:"urlNotificationMetadata"`
}

// Classify maps one raw API response (body bytes plus transport error) to an
// Outcome. Pure function, no state between calls.
//
// Priority order: transport failure, undecodable body, quota error
// (429 / RESOURCE_EXHAUSTED), any other error object, success.
func Classify(body []byte, err error) Outcome {
	if err != nil {
		return Outcome{Kind: Transient, Status: "TRANSPORT_ERROR", Message: err.Error()}
	}

	var resp apiResponse
	if jerr := json.Unmarshal(body, &resp); jerr != nil {
		return Outcome{Kind: Transient, Status: "INVALID_JSON", Message: jerr.Error()}
	}

	if resp.Error != nil {
		e := resp.Error
		if e.Code == 429 || e.Status == "RESOURCE_EXHAUSTED" {
			return Outcome{Kind: CredentialExhausted, Code: e.Code, Status: e.Status, Message: e.Message}
		}
		return Outcome{Kind: URLRejected, Code: e.Code, Status: e.Status, Message: e.Message}
	}

	out := Outcome{Kind: Success}
	if resp.Metadata != nil {
		out.NotifiedURL = resp.Metadata.URL
		if resp.Metadata.LatestUpdate != nil {
			out.NotifyTime = resp.Metadata.LatestUpdate.NotifyTime
		}
	}
	return out
}
