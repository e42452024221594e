package gomariadb

type txAdapter struct {
	session *Session
}

func (t *txAdapter) Commit() error {
	_, _, err := t.session.Exec("COMMIT")
	if err == nil {
		t.session.saver.clear()
	}
	return err
}

func (t *txAdapter) Rollback() error {
	_, _, err := t.session.Exec("ROLLBACK")
	t.session.saver.clear()
	return err
}
