package models

// DefaultAchievements is the compiled-in catalog, used when no CATALOG_SOURCE is configured.
var DefaultAchievements = []AchievementDefinition{
	// --- Streaks ---
	{
		ID:            "habit_spark",
		Name:          "Habit Spark",
		Description:   "Complete tasks for 3 days straight.",
		Icon:          "🔥",
		Category:      "streak",
		CriteriaType:  CriteriaStreakDays,
		CriteriaValue: 3,
	},
	{
		ID:            "rhythm_seeker",
		Name:          "Rhythm Seeker",
		Description:   "Achieve a 7-day verified streak.",
		Icon:          "🎶",
		Category:      "streak",
		CriteriaType:  CriteriaStreakDays,
		CriteriaValue: 7,
		IsVerified:    true,
	},
	{
		ID:            "flow_state",
		Name:          "Flow State",
		Description:   "Achieve a 14-day verified streak.",
		Icon:          "💧",
		Category:      "streak",
		CriteriaType:  CriteriaStreakDays,
		CriteriaValue: 14,
		IsVerified:    true,
	},
	{
		ID:            "unbroken_chain",
		Name:          "Unbroken Chain",
		Description:   "Achieve a 30-day streak.",
		Icon:          "⛓️",
		Category:      "streak",
		CriteriaType:  CriteriaStreakDays,
		CriteriaValue: 30,
	},

	// --- Task completion milestones ---
	{
		ID:            "task_initiate",
		Name:          "Task Initiate",
		Description:   "Complete your first verified task.",
		Icon:          "🪄",
		Category:      "task_completion",
		CriteriaType:  CriteriaTotalTasks,
		CriteriaValue: 1,
		IsVerified:    true,
	},
	{
		ID:            "daily_dynamo",
		Name:          "Daily Dynamo",
		Description:   "Achieve 5 days of 100% daily task completion.",
		Icon:          "🔄",
		Category:      "task_completion",
		CriteriaType:  CriteriaPerfectDays,
		CriteriaValue: 5,
		IsVerified:    true,
	},
	{
		ID:            "momentum_rider",
		Name:          "Momentum Rider",
		Description:   "Complete 20 tasks with proof.",
		Icon:          "🧭",
		Category:      "task_completion",
		CriteriaType:  CriteriaTotalTasks,
		CriteriaValue: 20,
		IsVerified:    true,
	},
	{
		ID:            "relentless",
		Name:          "Relentless",
		Description:   "Complete 50 tasks.",
		Icon:          "🦾",
		Category:      "task_completion",
		CriteriaType:  CriteriaTotalTasks,
		CriteriaValue: 50,
	},

	// --- Roadmaps ---
	{
		ID:            "zero_inbox",
		Name:          "Zero Inbox",
		Description:   "Finish an entire roadmap on time.",
		Icon:          "📂",
		Category:      "roadmap",
		CriteriaType:  CriteriaRoadmapCompleted,
		CriteriaValue: 1,
	},

	// --- Topic mastery ---
	{
		ID:            "first_spark_quiz",
		Name:          "First Spark",
		Description:   "Pass your first quiz on any roadmap topic.",
		Icon:          "✨",
		Category:      "topic_mastery",
		CriteriaType:  CriteriaQuizzesPassed,
		CriteriaValue: 1,
		IsVerified:    true,
	},
}
