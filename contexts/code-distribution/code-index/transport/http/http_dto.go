package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterArtifactRequest struct {
	Fingerprint string `json:"fingerprint"`
	Address     string `json:"address"`
}

type ArtifactDTO struct {
	Fingerprint  string `json:"fingerprint"`
	Address      string `json:"address"`
	RegisteredAt string `json:"registered_at"`
}

type RegisterArtifactResponse struct {
	Status  string      `json:"status"`
	Created bool        `json:"created"`
	Data    ArtifactDTO `json:"data"`
}

type ListArtifactsResponse struct {
	Items []ArtifactDTO `json:"items"`
	Count int           `json:"count"`
}
