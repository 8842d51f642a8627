package scraper

// Selector strategy tables. The fallback entries reflect markup
// variants observed historically; order is priority order.

var pageNameStrategies = []Strategy{
	Text(`[data-test-id="company-name"]`),
	Text(`.org-top-card-summary__title`),
	Text(`h1`),
}

var pageURNStrategies = []Strategy{
	Attr(`[data-test-id="company-name"]`, "data-entity-urn"),
	Attr(`.org-top-card-summary__title`, "data-entity-urn"),
}

var pageImageStrategies = []Strategy{
	Attr(`.org-top-card-primary-content__logo img`, "src"),
	Attr(`.org-top-card-summary__image img`, "src"),
}

var pageDescriptionStrategies = []Strategy{
	Text(`[data-test-id="about-us-description"]`),
	Text(`.org-top-card-summary-info-list__info-item`),
	Text(`.break-words`),
}

var pageWebsiteStrategies = []Strategy{
	Attr(`a[data-test-id="website"]`, "href"),
	Attr(`.org-top-card-summary-info-list a[href^="http"]`, "href"),
}

var pageIndustryStrategies = []Strategy{
	Text(`[data-test-id="industry"]`),
	Text(`.org-top-card-summary-info-list__info-item`),
}

var pageFollowersStrategies = []Strategy{
	Text(`[data-test-id="followers-count"]`),
	Text(`.org-top-card-summary-info-list__info-item`),
}

var pageHeadCountStrategies = []Strategy{
	Text(`[data-test-id="headcount"]`),
	Text(`.org-top-card-summary-info-list__info-item`),
}

var pageSpecialitiesStrategies = []Strategy{
	Text(`[data-test-id="specialities"]`),
	Text(`.org-top-card-summary-info-list__info-item`),
}

// Post containers, primary table. The secondary fallback query used
// when none of these match is postFallbackSelector.
var postContainerSelectors = []string{
	`.feed-shared-update-v2`,
	`.update-components-actor`,
	`[data-test-id="update"]`,
	`.occludable-update`,
}

const postFallbackSelector = `.feed-shared-update-v2, .update-components-actor`

var postContentStrategies = []Strategy{
	Text(`.feed-shared-text`),
	Text(`.update-components-text`),
}

var postLikeStrategies = []Strategy{
	Text(`[data-test-id="social-actions__reactions-count"]`),
	Text(`.social-actions__reactions-count`),
}

var postCommentCountStrategies = []Strategy{
	Text(`[data-test-id="social-actions__comments-count"]`),
	Text(`.social-actions__comments-count`),
}

var postTimeSelector = `time, .feed-shared-actor__sub-description`

const commentContainerSelector = `.comments-comment-item, .comment-item, [data-test-id="comment"]`

var commentAuthorStrategies = []Strategy{
	Text(`.comment-author`),
	Text(`.comments-post-meta__actor-name`),
}

var commentContentStrategies = []Strategy{
	Text(`.comment-content`),
	Text(`.comments-comment-item__main-content`),
}

var employeeContainerSelectors = []string{
	`.org-people-profile-card`,
	`.org-people__card-spacing`,
	`[data-test-id="people-card"]`,
	`.org-people-profile-card__profile-info`,
}

var employeeNameStrategies = []Strategy{
	Text(`.org-people-profile-card__profile-title`),
	Text(`.org-people-profile-card__profile-name`),
}

var employeeTitleStrategies = []Strategy{
	Text(`.org-people-profile-card__profile-info`),
	Text(`.org-people-profile-card__profile-meta`),
}

const employeeProfileLinkSelector = `a[href*="/in/"]`
