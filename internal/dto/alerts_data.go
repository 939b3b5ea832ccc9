// AlertsData is a paginated response payload for the alert journal.
package dto

type AlertsData struct {
	Alerts      []AlertInfo `json:"alerts"`
	ImagesDir   string      `json:"imagesDir"`
	Size        int64       `json:"size"`
	Length      int         `json:"length"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Limit       int         `json:"pageSize"`
}
