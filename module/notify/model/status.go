package model

// UserStatus is the operational summary served by the status API and handed
// to notifier sinks.
type UserStatus struct {
	User
	State         ViewState `json:"state"`
	Notifications int64     `json:"notifications"`
}

// DrainFailure records one user that could not be fully processed.
type DrainFailure struct {
	User  string `json:"user"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// DrainResult summarises one bucket drain. Notifications is aligned with the
// member snapshot order; a user that failed before delivery counts 0.
type DrainResult struct {
	RunID         string         `json:"run_id"`
	Bucket        string         `json:"bucket"`
	Users         int            `json:"users"`
	Notifications []int          `json:"notifications"`
	Failures      []DrainFailure `json:"failures,omitempty"`
}
