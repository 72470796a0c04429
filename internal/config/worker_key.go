package config

type WorkerKeyStruct struct {
	UserStatsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	UserStatsQueue: "user_stats_queue",
}
