package wsenv

import "strings"

// ClientScript returns the thin client for a session endpoint at path.
// It is injected into the application shell by the dev server.
func ClientScript(path string) string {
	return strings.Replace(clientScript, "__VROUTE_WS_PATH__", path, 1)
}

const clientScript = `
<script>
(function() {
    'use strict';

    var ws = null;
    var pending = {};

    function send(msg) {
        if (ws && ws.readyState === WebSocket.OPEN) {
            ws.send(JSON.stringify(msg));
            return true;
        }
        return false;
    }

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        ws = new WebSocket(protocol + '//' + location.host + '__VROUTE_WS_PATH__');

        ws.onopen = function() {
            send({type: 'hello', url: location.href});
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }

            switch (msg.type) {
                case 'title':
                    document.title = msg.title;
                    break;
                case 'render':
                    var root = document.getElementById('vroute-view');
                    if (root) {
                        root.innerHTML = msg.html;
                    }
                    break;
                case 'intercept':
                    delete pending[msg.url];
                    history.pushState(null, '', msg.url);
                    break;
                case 'decline':
                    delete pending[msg.url];
                    location.assign(msg.url);
                    break;
                case 'history':
                    if (msg.mode === 'replace') {
                        history.replaceState(null, '', msg.url);
                    } else if (msg.mode === 'push') {
                        history.pushState(null, '', msg.url);
                    }
                    break;
                case 'reload':
                    location.reload();
                    break;
                case 'error':
                    console.error('[vroute]', msg.error);
                    break;
            }
        };

        ws.onclose = function() {
            ws = null;
        };
    }

    document.addEventListener('click', function(e) {
        if (e.defaultPrevented || e.button !== 0 || e.metaKey || e.ctrlKey || e.shiftKey || e.altKey) {
            return;
        }
        var a = e.target.closest ? e.target.closest('a[href]') : null;
        if (!a || a.target) {
            return;
        }
        var kind = a.hasAttribute('download') ? 'download' : 'link';
        if (kind === 'download') {
            return;
        }
        if (send({type: 'navigate', kind: kind, url: a.href})) {
            e.preventDefault();
            pending[a.href] = true;
        }
    });

    window.addEventListener('popstate', function() {
        send({type: 'popstate', url: location.href});
    });

    connect();
})();
</script>
`
