// Package errors provides structured errors with machine-readable codes.
//
// Every failure the two-factor core reports to its caller is an *Error carrying an
// ErrorCode, a human-readable message and optional details. Callers branch on package
// sentinels with errors.Is, or read the code with GetCode, and the surrounding layer can
// map it to a status with MapErrorCodeToHTTPStatus.
//
//	if errors.GetCode(err) == errors.ErrCodeRateLimitExceeded {
//		retry := errors.GetDetails(err)["retry_after"]
//		// ask the user to wait
//	}
package errors
