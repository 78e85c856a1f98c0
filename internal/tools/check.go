package tools

// Requirement defines an external binary the application relies on.
type Requirement struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Path        string `json:"path,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// MediaRequirements lists the binaries used by the merge pipeline.
func MediaRequirements() []Requirement {
	return []Requirement{
		{Name: "ffmpeg", Description: "Concatenates audio and composes the output video"},
		{Name: "ffprobe", Description: "Reads the merged audio duration for progress"},
	}
}

// Check resolves every requirement through loc and reports availability.
func Check(loc Locator, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Description: req.Description,
			Optional:    req.Optional,
		}
		path, err := loc.Locate(req.Name)
		if err != nil {
			status.Detail = err.Error()
		} else {
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}

// Ready reports whether all mandatory requirements are available.
func Ready(statuses []Status) bool {
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			return false
		}
	}
	return true
}
