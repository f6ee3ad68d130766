package github

import "github.com/sakif/sonarhub/internal/model"

// recentRepositoriesQuery lists a user's repositories, most recently updated
// first. user is null when the login does not exist.
type recentRepositoriesQuery struct {
	User *struct {
		Repositories struct {
			Nodes []model.GitHubRepository
		} `graphql:"repositories(first: $first, orderBy: {field: UPDATED_AT, direction: DESC})"`
	} `graphql:"user(login: $login)"`
}
