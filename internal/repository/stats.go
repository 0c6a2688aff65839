package repository

// Stats acumula contadores de atendimento do cache.
// Hit = chamada atendida sem round-trip síncrono de rede, mesmo que um
// refresh em background tenha sido disparado junto.
type Stats struct {
	TotalRequests int64
	Hits          int64
	Misses        int64
}

// HitRate devolve a fração de hits (0 quando não houve requisição)
func (s Stats) HitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.TotalRequests)
}
