package gomariadb

import "strconv"

// Cancel interrupts a query in flight on this Session by opening a second,
// short-lived connection and issuing "KILL QUERY <connection id>" (spec.md
// §4.2 "Cancellation"; MariaDB/MySQL have no in-band cancel command, so
// this is the only mechanism available).
func (s *Session) Cancel() error {
	s.mu.Lock()
	connID := s.connectionID
	cfg := s.cfg
	s.mu.Unlock()

	if connID == 0 {
		return myError(ErrInterrupted)
	}

	killer, err := Connect(cfg)
	if err != nil {
		return err
	}
	defer killer.Close()

	_, _, err = killer.Exec("KILL QUERY " + strconv.FormatUint(uint64(connID), 10))
	return err
}
