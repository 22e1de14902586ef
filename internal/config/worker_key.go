package config

type WorkerKeyStruct struct {
	PersistAnswersQueue string
	LeaderboardQueue    string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue: "persist_answers_queue",
	LeaderboardQueue:    "leaderboard_queue",
}
