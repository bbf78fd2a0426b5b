package deepface

// RepresentRequest for POST /represent
type RepresentRequest struct {
	Img              string `json:"img"`               // base64 data URL
	Model            string `json:"model_name"`        // "Dlib" yields 128-d vectors
	Detector         string `json:"detector_backend"`  // "dlib", "opencv", "retinaface", ...
	EnforceDetection bool   `json:"enforce_detection"` // false returns the whole frame when no face is found
}

// RepresentResponse from POST /represent
type RepresentResponse struct {
	Results []RepresentResult `json:"results"`
}

type RepresentResult struct {
	Embedding  []float64  `json:"embedding"`
	FacialArea FacialArea `json:"facial_area"`
}

type FacialArea struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}
