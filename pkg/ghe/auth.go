package ghe

import (
	"fmt"
	"os"
	"strings"
)

// GetToken retrieves the GitHub token from the environment variable or
// the configured value. The environment variable wins.
func GetToken(configured string) (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return strings.TrimSpace(token), nil
	}

	if configured != "" {
		return strings.TrimSpace(configured), nil
	}

	return "", fmt.Errorf("no GitHub token found: set GITHUB_TOKEN environment variable or configure github.token in ~/.costsync/config.yaml")
}

// AuthInstructions returns instructions for setting up GitHub
// authentication
func AuthInstructions() string {
	return `GitHub authentication is required. Please set up authentication using one of the following methods:

1. Environment Variable (Recommended for CI/CD):
   export GITHUB_TOKEN="your_personal_access_token"

2. Configuration File:
   Add the following to ~/.costsync/config.yaml:

   github:
     token: "your_personal_access_token"

To create a personal access token:
1. Go to GitHub Settings > Developer settings > Personal access tokens
2. Click "Generate new token (classic)"
3. Select the following scopes:
   - manage_billing:enterprise (cost center management)
   - read:org (team membership)
4. Copy the generated token and use it with one of the methods above

Note: the token owner must be an enterprise billing administrator.`
}
