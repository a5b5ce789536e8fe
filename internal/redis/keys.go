package redisx

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "absolutcinema:v1"

func KeyShowtimeSeatMap(showtimeID uuid.UUID) string {
	return fmt.Sprintf("%s:showtime:%s:seatmap", ns, showtimeID)
}

func KeyMovies() string {
	return ns + ":movies"
}

func KeyMovieShowtimes(movieID uuid.UUID) string {
	return fmt.Sprintf("%s:movie:%s:showtimes", ns, movieID)
}

func KeyClaimRate(userID uuid.UUID) string {
	return fmt.Sprintf("%s:rl:claims:%s", ns, userID)
}

func KeyIdemClaim(userID, idemKey string) string {
	return fmt.Sprintf("%s:idem:claims:%s:%s", ns, userID, idemKey)
}

func ChannelShowtimesChanged() string {
	return ns + ":showtimes:changed"
}
