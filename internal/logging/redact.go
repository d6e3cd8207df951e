package logging

// RedactToken shortens a bearer token to a recognizable prefix so log lines
// can be correlated without ever storing a replayable credential.
func RedactToken(token string) string {
	const keep = 8
	if len(token) <= keep {
		return "***"
	}
	return token[:keep] + "***"
}

// RedactEmail keeps enough of the local part to follow a single user through
// the logs without exposing the full address.
func RedactEmail(email string) string {
	const keep = 3
	for i, r := range email {
		if r == '@' {
			if i <= keep {
				return "***" + email[i:]
			}
			return email[:keep] + "***" + email[i:]
		}
	}
	return "***"
}
